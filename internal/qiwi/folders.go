package qiwi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// scriptPrefix marks the framework hydration script that carries the
// folder data on the dashboard page.
const scriptPrefix = `self.__next_f.push([1,"f:`

// Folders lists every dashboard folder. There is no listing API; the
// data is embedded in a hydration script on the dashboard HTML, as a
// JSON string wrapping a JSON array with one element holding the folder
// records under "data".
func (c *Client) Folders(ctx context.Context) ([]Folder, error) {
	if _, err := c.auth.EnsureToken(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/dashboard", nil)
	if err != nil {
		return nil, fmt.Errorf("qiwi: creating dashboard request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qiwi: fetching dashboard: %w", err)
	}
	defer resp.Body.Close()

	folders, err := parseDashboard(resp.Body)
	if err != nil {
		return nil, err
	}

	return folders, nil
}

func parseDashboard(r io.Reader) ([]Folder, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, &ProtocolError{Op: "parsing dashboard", Body: err.Error()}
	}

	for _, text := range scriptTexts(doc) {
		if !strings.HasPrefix(text, scriptPrefix) {
			continue
		}

		folders, ok := foldersFromScript(text)
		if ok {
			return folders, nil
		}
	}

	return nil, &ProtocolError{Op: "parsing dashboard", Body: "folder data not found"}
}

// scriptTexts collects the text content of every script element.
func scriptTexts(doc *html.Node) []string {
	var out []string

	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.Data != "script" {
			continue
		}

		var b strings.Builder

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode {
				b.WriteString(child.Data)
			}
		}

		out = append(out, b.String())
	}

	return out
}

// foldersFromScript unwraps the double-encoded hydration payload: the
// script argument between the outermost quotes is a JSON string, whose
// value in turn contains a JSON array between the outermost brackets.
func foldersFromScript(text string) ([]Folder, bool) {
	start := strings.Index(text, `"`)
	end := strings.LastIndex(text, `"`)

	if start < 0 || end <= start {
		return nil, false
	}

	var inner string
	if err := json.Unmarshal([]byte(text[start:end+1]), &inner); err != nil {
		return nil, false
	}

	start = strings.Index(inner, "[")
	end = strings.LastIndex(inner, "]")

	if start < 0 || end <= start {
		return nil, false
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(inner[start:end+1]), &elements); err != nil {
		return nil, false
	}

	for _, element := range elements {
		var payload struct {
			Data []folderRecord `json:"data"`
		}

		if err := json.Unmarshal(element, &payload); err != nil || payload.Data == nil {
			continue
		}

		folders := make([]Folder, len(payload.Data))
		for i, rec := range payload.Data {
			folders[i] = rec.folder()
		}

		return folders, true
	}

	return nil, false
}

// folderRecord is the wire shape of one dashboard folder. A record
// without a parentFolder key is a root folder.
type folderRecord struct {
	ID     string  `json:"_id"`
	Name   string  `json:"folderName"`
	Parent *string `json:"parentFolder"`
}

func (rec folderRecord) folder() Folder {
	f := Folder{ID: rec.ID, Name: rec.Name, Root: rec.Parent == nil}
	if rec.Parent != nil {
		f.ParentID = *rec.Parent
	}

	return f
}

// CreateFolder creates a folder under parent; nil parent means root.
func (c *Client) CreateFolder(ctx context.Context, name string, parent FolderID) (*Folder, error) {
	payload := map[string]any{
		"folderName":   name,
		"parentFolder": nil,
	}

	if parent != nil {
		payload["parentFolder"] = parent.folderValue()
	}

	body, err := c.call(ctx, http.MethodPost, "manageFolder", payload, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		FolderID   string `json:"folderId"`
		FolderName string `json:"folderName"`
	}

	if err := unmarshalResponse(body, &resp, "manageFolder"); err != nil {
		return nil, err
	}

	return &Folder{
		ID:       resp.FolderID,
		Name:     resp.FolderName,
		ParentID: folderParam(parent),
	}, nil
}

// DeleteFolder removes a folder by ID.
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	_, err := c.call(ctx, http.MethodDelete, "manageFolder",
		map[string]string{"folderId": folderID}, nil)

	return err
}

