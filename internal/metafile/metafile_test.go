package metafile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "movie.mkv.qiwi_upload"), nil)
}

func TestLoad_Missing(t *testing.T) {
	s := newTestStore(t)

	meta, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, meta.Info)
	assert.Nil(t, meta.Final)
	assert.Empty(t, meta.ETags)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	meta := &Metadata{
		Info: &UploadInfo{FileID: "file-1", Key: "k", UploadID: "up-1"},
		ETags: []PartETag{
			{ETag: "etag-1", Size: 5242880},
			{ETag: "etag-2", Size: 1024},
		},
	}

	require.NoError(t, s.Save(meta))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

// The sidecar layout is shared with other tooling; etags must serialize
// as [etag, size] pairs and info must keep the service's field names.
func TestSave_WireFormat(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(&Metadata{
		Info:  &UploadInfo{FileID: "f", Key: "k", UploadID: "u"},
		ETags: []PartETag{{ETag: "abc", Size: 7}},
	}))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `{"result":"f","key":"k","uploadId":"u"}`, string(raw["info"]))
	assert.JSONEq(t, `[["abc",7]]`, string(raw["etags"]))
	assert.NotContains(t, raw, "final")
}

func TestLoad_ExistingSidecarFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bin.qiwi_upload")
	blob := `{
		"info": {"success": true, "result": "id-9", "key": "key-9", "uploadId": "up-9"},
		"etags": [["e1", 5242880], ["e2", 100]],
		"final": {"_id": "id-9", "fileName": "file.bin", "fileSize": "5243980", "slug": "s9", "downloadCount": 0}
	}`
	require.NoError(t, os.WriteFile(path, []byte(blob), 0o600))

	meta, err := NewStore(path, nil).Load()
	require.NoError(t, err)

	require.NotNil(t, meta.Info)
	assert.Equal(t, "id-9", meta.Info.FileID)
	require.Len(t, meta.ETags, 2)
	assert.Equal(t, int64(5242880), meta.ETags[0].Size)
	require.NotNil(t, meta.Final)
	assert.Equal(t, ByteSize(5243980), meta.Final.Size)
	assert.Empty(t, meta.Final.CreatedAt)
}

func TestLoad_CorruptTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.qiwi_upload")
	require.NoError(t, os.WriteFile(path, []byte(`{"etags": [[truncated`), 0o600))

	meta, err := NewStore(path, nil).Load()
	require.NoError(t, err)
	assert.Nil(t, meta.Info)
	assert.Empty(t, meta.ETags)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(&Metadata{}))
	require.NoError(t, s.Delete())
	require.NoError(t, s.Delete(), "second delete is a no-op")

	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestByteSize_Flexible(t *testing.T) {
	var b ByteSize
	require.NoError(t, json.Unmarshal([]byte(`123`), &b))
	assert.Equal(t, ByteSize(123), b)

	require.NoError(t, json.Unmarshal([]byte(`"456"`), &b))
	assert.Equal(t, ByteSize(456), b)

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &b))
}

func TestPartETag_UnmarshalErrors(t *testing.T) {
	var p PartETag
	assert.Error(t, json.Unmarshal([]byte(`["only-one"]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"etag": "x"}`), &p))
}

func TestPathFor(t *testing.T) {
	assert.Equal(t, "/data/a.tar.gz.qiwi_upload", PathFor("/data/a.tar.gz"))
}
