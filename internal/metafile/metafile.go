// Package metafile persists resumable-upload progress in a JSON sidecar
// stored next to the source file. The sidecar is the crash-safety
// checkpoint: it is rewritten atomically after every uploaded part and
// deleted only once the upload has fully completed. A missing or corrupt
// sidecar means "no prior progress", never a fatal error.
package metafile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Suffix is appended to the source file path to name its sidecar.
const Suffix = ".qiwi_upload"

// filePerms restricts sidecars to owner-only read/write.
const filePerms = 0o600

// Metadata is the sidecar contents. Info and Final are nil until the
// corresponding upload stage has completed, so the three upload stages
// (uninitialized, initialized, finalized) are distinguished by which
// pointers are set rather than by key-membership checks.
type Metadata struct {
	Info  *UploadInfo `json:"info,omitempty"`
	ETags []PartETag  `json:"etags"`
	Final *FileRecord `json:"final,omitempty"`
}

// UploadInfo identifies a server-side multipart upload, as returned by the
// initialize call.
type UploadInfo struct {
	FileID   string `json:"result"`
	Key      string `json:"key"`
	UploadID string `json:"uploadId"`
}

// PartETag records one successfully uploaded part: the server-issued
// entity tag and the exact number of bytes sent. The wire format is a
// two-element array, matching the established sidecar layout.
type PartETag struct {
	ETag string
	Size int64
}

func (p PartETag) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.ETag, p.Size})
}

func (p *PartETag) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw) != 2 {
		return fmt.Errorf("metafile: etag entry has %d elements, want 2", len(raw))
	}

	if err := json.Unmarshal(raw[0], &p.ETag); err != nil {
		return fmt.Errorf("metafile: etag entry: %w", err)
	}

	if err := json.Unmarshal(raw[1], &p.Size); err != nil {
		return fmt.Errorf("metafile: etag entry size: %w", err)
	}

	return nil
}

// FileRecord is a server file record, as returned by completeUpload and
// getFolderFiles. CreatedAt is empty until the server (or the client's
// post-finalize stamping) fills it in.
type FileRecord struct {
	ID        string   `json:"_id"`
	Name      string   `json:"fileName"`
	Size      ByteSize `json:"fileSize"`
	Slug      string   `json:"slug"`
	Folder    string   `json:"folder,omitempty"`
	Downloads int      `json:"downloadCount"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

// ByteSize is an int64 that tolerates the service returning file sizes as
// either a JSON number or a decimal string.
type ByteSize int64

func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		data = []byte(s)
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("metafile: file size %q: %w", string(data), err)
	}

	*b = ByteSize(n)

	return nil
}

// PathFor returns the sidecar path for a source file.
func PathFor(sourcePath string) string {
	return sourcePath + Suffix
}

// Store reads and writes one sidecar file.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a Store for the given sidecar path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{path: path, logger: logger}
}

// Path returns the sidecar path this store operates on.
func (s *Store) Path() string {
	return s.path
}

// Load reads the sidecar. A missing file yields empty metadata; a file
// that cannot be parsed is logged and likewise treated as no progress,
// since a half-written checkpoint must not block a fresh upload.
func (s *Store) Load() (*Metadata, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Metadata{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("metafile: reading %s: %w", s.path, err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		s.logger.Warn("corrupt upload metadata, starting over",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)

		return &Metadata{}, nil
	}

	return &meta, nil
}

// Save writes the sidecar atomically: temp file in the same directory,
// then rename. A crash mid-write leaves the previous checkpoint intact.
func (s *Store) Save(meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "\t")
	if err != nil {
		return fmt.Errorf("metafile: encoding: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".qiwi_upload-*.tmp")
	if err != nil {
		return fmt.Errorf("metafile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, filePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("metafile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("metafile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("metafile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("metafile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("metafile: renaming: %w", err)
	}

	success = true

	return nil
}

// Delete removes the sidecar. No error if it is already gone.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("metafile: deleting %s: %w", s.path, err)
	}

	return nil
}
