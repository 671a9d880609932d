package qiwi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dashboardHTML builds a dashboard page whose hydration script carries
// the given folder records, double-encoded the way the framework emits
// them.
func dashboardHTML(t *testing.T, records []map[string]any) string {
	t.Helper()

	inner, err := json.Marshal([]any{
		"some-prefix",
		map[string]any{"data": records},
	})
	require.NoError(t, err)

	quoted, err := json.Marshal("f:" + string(inner))
	require.NoError(t, err)

	return fmt.Sprintf(`<html><head>
<script>window.__noise = 1;</script>
</head><body>
<script>self.__next_f.push([1,%s])</script>
</body></html>`, quoted)
}

func TestFolders(t *testing.T) {
	s := newFakeService(t)
	s.mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, dashboardHTML(t, []map[string]any{
			{"_id": "f1", "folderName": "Docs"},
			{"_id": "f2", "folderName": "Invoices", "parentFolder": "f1"},
		}))
	})

	c := newTestClient(t, s)

	folders, err := c.Folders(context.Background())
	require.NoError(t, err)
	require.Len(t, folders, 2)

	assert.Equal(t, Folder{ID: "f1", Name: "Docs", Root: true}, folders[0])
	assert.Equal(t, Folder{ID: "f2", Name: "Invoices", ParentID: "f1"}, folders[1])
}

func TestFolders_NoDataFound(t *testing.T) {
	s := newFakeService(t)
	s.mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><script>unrelated()</script></body></html>`)
	})

	c := newTestClient(t, s)

	_, err := c.Folders(context.Background())

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Contains(t, protoErr.Body, "folder data not found")
}

func TestCreateFolder(t *testing.T) {
	tests := []struct {
		name       string
		parent     FolderID
		wantParent any    // JSON value of parentFolder in the request
		wantID     string // ParentID on the returned folder
	}{
		{"in root", nil, nil, "nullFolder"},
		{"raw id", RawFolderID("f1"), "f1", "f1"},
		{"folder value", Folder{ID: "f2", Name: "Docs"}, "f2", "f2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeService(t)
			s.mux.HandleFunc("POST /api/manageFolder", func(w http.ResponseWriter, r *http.Request) {
				var payload map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				assert.Equal(t, "New Folder", payload["folderName"])
				assert.Equal(t, tt.wantParent, payload["parentFolder"])

				fmt.Fprint(w, `{"success": true, "folderId": "f9", "folderName": "New Folder"}`)
			})

			c := newTestClient(t, s)

			folder, err := c.CreateFolder(context.Background(), "New Folder", tt.parent)
			require.NoError(t, err)
			assert.Equal(t, "f9", folder.ID)
			assert.Equal(t, "New Folder", folder.Name)
			assert.Equal(t, tt.wantID, folder.ParentID)
		})
	}
}

func TestDeleteFolder(t *testing.T) {
	s := newFakeService(t)

	var deleted string

	s.mux.HandleFunc("DELETE /api/manageFolder", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		deleted = payload["folderId"]

		fmt.Fprint(w, `{"success": true}`)
	})

	c := newTestClient(t, s)

	require.NoError(t, c.DeleteFolder(context.Background(), "f1"))
	assert.Equal(t, "f1", deleted)
}

func TestFiles(t *testing.T) {
	s := newFakeService(t)

	var requestedFolder string

	s.mux.HandleFunc("POST /api/getFolderFiles", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		requestedFolder = payload["folderId"]

		fmt.Fprint(w, `{"success": true, "folderFiles": [
			{"_id": "a1", "fileName": "a.bin", "fileSize": "123", "slug": "sa",
			 "folder": null, "downloadCount": 7, "createdAt": "2025-11-01T00:00:00.000Z"},
			{"_id": "b2", "fileName": "b.bin", "fileSize": 456, "slug": "sb",
			 "folder": "f1", "downloadCount": 0, "createdAt": "2025-11-02T00:00:00.000Z"}
		]}`)
	})

	c := newTestClient(t, s)

	files, err := c.Files(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "nullFolder", requestedFolder)

	require.Len(t, files, 2)
	assert.Equal(t, int64(123), files[0].Size)
	assert.Equal(t, "nullFolder", files[0].FolderID, "files without a folder live in the root")
	assert.Equal(t, 7, files[0].Downloads)
	assert.Equal(t, int64(456), files[1].Size)
	assert.Equal(t, "f1", files[1].FolderID)

	_, err = c.Files(context.Background(), RawFolderID("f1"))
	require.NoError(t, err)
	assert.Equal(t, "f1", requestedFolder)
}

func TestMoveAndDeleteFiles(t *testing.T) {
	s := newFakeService(t)

	var moves []map[string]string

	var deletes []string

	s.mux.HandleFunc("PATCH /api/manageFile", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		moves = append(moves, payload)

		fmt.Fprint(w, `{"success": true}`)
	})

	s.mux.HandleFunc("DELETE /api/manageFile", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		deletes = append(deletes, payload["fileId"])

		fmt.Fprint(w, `{"success": true}`)
	})

	c := newTestClient(t, s)
	ctx := context.Background()

	require.NoError(t, c.MoveFiles(ctx, []string{"a1", "b2"}, RawFolderID("f1")))
	require.Len(t, moves, 2)
	assert.Equal(t, map[string]string{"fileId": "a1", "folderId": "f1"}, moves[0])
	assert.Equal(t, map[string]string{"fileId": "b2", "folderId": "f1"}, moves[1])

	require.NoError(t, c.MoveFile(ctx, "c3", nil))
	assert.Equal(t, map[string]string{"fileId": "c3", "folderId": "nullFolder"}, moves[2])

	require.NoError(t, c.DeleteFiles(ctx, []string{"a1", "b2"}))
	assert.Equal(t, []string{"a1", "b2"}, deletes)
}
