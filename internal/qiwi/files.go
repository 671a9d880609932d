package qiwi

import (
	"context"
	"net/http"

	"github.com/fendintridena/qiwigg-go/internal/metafile"
)

// Files lists the files in a folder; nil means the root.
func (c *Client) Files(ctx context.Context, folder FolderID) ([]*File, error) {
	body, err := c.call(ctx, http.MethodPost, "getFolderFiles",
		map[string]string{"folderId": folderParam(folder)}, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		FolderFiles []metafile.FileRecord `json:"folderFiles"`
	}

	if err := unmarshalResponse(body, &resp, "getFolderFiles"); err != nil {
		return nil, err
	}

	files := make([]*File, len(resp.FolderFiles))
	for i := range resp.FolderFiles {
		files[i] = fileFromRecord(&resp.FolderFiles[i])
	}

	return files, nil
}

// MoveFile moves one file into a folder; nil folder means the root.
func (c *Client) MoveFile(ctx context.Context, fileID string, folder FolderID) error {
	_, err := c.call(ctx, http.MethodPatch, "manageFile", map[string]string{
		"fileId":   fileID,
		"folderId": folderParam(folder),
	}, nil)

	return err
}

// MoveFiles moves a batch of files sequentially, stopping at the first
// failure.
func (c *Client) MoveFiles(ctx context.Context, fileIDs []string, folder FolderID) error {
	for _, id := range fileIDs {
		if err := c.MoveFile(ctx, id, folder); err != nil {
			return err
		}
	}

	return nil
}

// DeleteFile removes a file by ID.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	_, err := c.call(ctx, http.MethodDelete, "manageFile",
		map[string]string{"fileId": fileID}, nil)

	return err
}

// DeleteFiles removes a batch of files sequentially, stopping at the
// first failure.
func (c *Client) DeleteFiles(ctx context.Context, fileIDs []string) error {
	for _, id := range fileIDs {
		if err := c.DeleteFile(ctx, id); err != nil {
			return err
		}
	}

	return nil
}
