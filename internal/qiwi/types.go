package qiwi

import (
	"encoding/json"
	"fmt"

	"github.com/fendintridena/qiwigg-go/internal/metafile"
)

// rootFolderID is the service's wire marker for the dashboard root.
const rootFolderID = "nullFolder"

// FolderID identifies a destination folder in an API call. Root is the
// zero value; a concrete folder is either a raw ID string or a Folder
// returned by a listing. The wire value is resolved once, at the request
// boundary.
type FolderID interface {
	folderValue() string
}

// RawFolderID wraps a folder ID the caller already has as a string.
type RawFolderID string

func (id RawFolderID) folderValue() string { return string(id) }

// folderParam maps a FolderID to its wire value, treating nil as root.
func folderParam(id FolderID) string {
	if id == nil {
		return rootFolderID
	}

	return id.folderValue()
}

// Folder is a dashboard folder.
type Folder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	Root     bool   `json:"root,omitempty"`
}

func (f Folder) folderValue() string { return f.ID }

// URL returns the folder's dashboard address.
func (f Folder) URL() string {
	return serviceURL + "/folder/" + f.ID
}

func (f Folder) String() string {
	return fmt.Sprintf("%s (ID:%s)", f.Name, f.ID)
}

func (f Folder) MarshalJSON() ([]byte, error) {
	type plain Folder

	return json.Marshal(struct {
		plain
		URL string `json:"url"`
	}{plain(f), f.URL()})
}

// File is a stored file as the service reports it.
type File struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Slug      string `json:"slug"`
	FolderID  string `json:"parent_id"`
	Downloads int    `json:"downloads"`
	CreatedAt string `json:"uploaded"`
}

// URL returns the file's public download address.
func (f File) URL() string {
	return serviceURL + "/file/" + f.Slug
}

func (f File) String() string {
	return fmt.Sprintf("%s (ID:%s)", f.Name, f.ID)
}

func (f File) MarshalJSON() ([]byte, error) {
	type plain File

	return json.Marshal(struct {
		plain
		URL string `json:"url"`
	}{plain(f), f.URL()})
}

// fileFromRecord converts the wire record into a File, mapping an absent
// folder to the root marker.
func fileFromRecord(rec *metafile.FileRecord) *File {
	folder := rec.Folder
	if folder == "" {
		folder = rootFolderID
	}

	return &File{
		ID:        rec.ID,
		Name:      rec.Name,
		Size:      int64(rec.Size),
		Slug:      rec.Slug,
		FolderID:  folder,
		Downloads: rec.Downloads,
		CreatedAt: rec.CreatedAt,
	}
}
