package chunk

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFileWith(t *testing.T, data []byte) *os.File {
	t.Helper()

	path := filepath.Join(t.TempDir(), "source.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	return f
}

func TestOpen_ClampsToEOF(t *testing.T) {
	f := tempFileWith(t, bytes.Repeat([]byte{'x'}, 1000))

	w, err := Open(f, 990, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(10), w.Size())

	buf := make([]byte, 1000)
	n, err := w.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = w.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpen_FullChunkInsideFile(t *testing.T) {
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i)
	}

	f := tempFileWith(t, data)

	w, err := Open(f, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), w.Size())

	got, err := io.ReadAll(w)
	require.NoError(t, err)
	assert.Equal(t, data[100:200], got)
	assert.Equal(t, int64(100), w.Size(), "Size is fixed at Open time")
}

func TestRead_NeverCrossesWindow(t *testing.T) {
	f := tempFileWith(t, bytes.Repeat([]byte{'a'}, 64))

	w, err := Open(f, 10, 20)
	require.NoError(t, err)

	total := 0

	for {
		buf := make([]byte, 7)

		n, err := w.Read(buf)
		total += n

		if err == io.EOF {
			break
		}

		require.NoError(t, err)
	}

	assert.Equal(t, 20, total)
}

func TestOpen_OffsetAtEOF(t *testing.T) {
	f := tempFileWith(t, []byte("abc"))

	w, err := Open(f, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.Size())

	_, err = w.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpen_WorksWithBytesReader(t *testing.T) {
	r := bytes.NewReader([]byte("0123456789"))

	w, err := Open(r, 4, 3)
	require.NoError(t, err)

	got, err := io.ReadAll(w)
	require.NoError(t, err)
	assert.Equal(t, "456", string(got))
}
