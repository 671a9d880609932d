package qiwi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/fendintridena/qiwigg-go/internal/chunk"
	"github.com/fendintridena/qiwigg-go/internal/metafile"
	"github.com/fendintridena/qiwigg-go/internal/sizetoken"
)

const (
	// DefaultChunkSize is used when the caller does not choose one.
	DefaultChunkSize = 100_000_000

	// MinChunkSize is the service-imposed floor; smaller requests are
	// silently clamped up to it.
	MinChunkSize = 5_242_880

	// maxParts is the service's hard per-upload part ceiling.
	maxParts = 10000

	maxChunkAttempts = 10
	chunkRetryPause  = 10 * time.Second
)

// createdAtLayout renders local time truncated to milliseconds; the
// literal Z suffix is appended separately because the service stores the
// stamp as an opaque string in exactly this shape.
const createdAtLayout = "2006-01-02T15:04:05.000"

// workerLimitMessage appears in presigned-endpoint failure bodies that
// would otherwise be pages of HTML; it is condensed to just the message.
const workerLimitMessage = "Worker exceeded resource limits"

// UploadOptions tunes a single upload.
type UploadOptions struct {
	// ChunkSize is clamped to MinChunkSize; zero means DefaultChunkSize.
	ChunkSize int64

	// MetadataPath overrides the default sidecar location next to the
	// source file.
	MetadataPath string

	Progress ProgressFunc
}

// UploadFile uploads the file at path as a multipart upload, resuming
// from the sidecar checkpoint when one exists. Progress is persisted
// after every chunk, so any failure short of finalize leaves a resumable
// state behind; the sidecar is removed only once the file record is
// complete.
func (c *Client) UploadFile(ctx context.Context, path string, opts UploadOptions) (*File, error) {
	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}

	if chunkSize < MinChunkSize {
		chunkSize = MinChunkSize
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("qiwi: stat source file: %w", err)
	}

	size := fi.Size()
	name := norm.NFC.String(filepath.Base(path))

	metaPath := opts.MetadataPath
	if metaPath == "" {
		metaPath = metafile.PathFor(path)
	}

	store := metafile.NewStore(metaPath, c.logger)

	meta, err := store.Load()
	if err != nil {
		return nil, err
	}

	if meta.Info == nil {
		info, err := c.initializeUpload(ctx, name, size)
		if err != nil {
			return nil, err
		}

		meta.Info = info

		if err := store.Save(meta); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("qiwi: opening source file: %w", err)
	}
	defer f.Close()

	if err := c.uploadChunks(ctx, meta, store, f, size, chunkSize, opts.Progress); err != nil {
		return nil, err
	}

	// The stamp predates finalize so a crash between the two still
	// yields the moment the upload actually completed.
	stamp := c.nowFunc().Format(createdAtLayout) + "Z"

	if meta.Final == nil {
		final, err := c.finalizeUpload(ctx, meta.Info, meta.ETags)
		if err != nil {
			return nil, err
		}

		meta.Final = final

		if err := store.Save(meta); err != nil {
			return nil, err
		}
	}

	if meta.Final.CreatedAt == "" {
		meta.Final.CreatedAt = stamp

		if err := store.Save(meta); err != nil {
			return nil, err
		}
	}

	file := fileFromRecord(meta.Final)

	if err := store.Delete(); err != nil {
		return nil, err
	}

	return file, nil
}

// initializeUpload opens a multipart upload. The claimed file size is
// authorized by an encrypted size token in the body; the descriptive
// fields travel as query parameters.
func (c *Client) initializeUpload(ctx context.Context, name string, size int64) (*metafile.UploadInfo, error) {
	token, err := sizetoken.Encrypt([]byte(strconv.FormatInt(size, 10)))
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"fileSize": {strconv.FormatInt(size, 10)},
		"id":       {uuid.NewString()},
		"fileName": {name},
		"fileType": {""},
	}

	body, err := c.call(ctx, http.MethodPost, "privateUpload",
		map[string]string{"token": token}, query)
	if err != nil {
		return nil, err
	}

	var info metafile.UploadInfo
	if err := unmarshalResponse(body, &info, "privateUpload"); err != nil {
		return nil, err
	}

	if info.FileID == "" || info.Key == "" || info.UploadID == "" {
		return nil, &ProtocolError{Op: "POST privateUpload", Body: string(body)}
	}

	return &info, nil
}

// uploadChunks transfers every remaining part, appending an etag record
// and persisting the sidecar after each success.
func (c *Client) uploadChunks(
	ctx context.Context,
	meta *metafile.Metadata,
	store *metafile.Store,
	f io.ReadSeeker,
	size, chunkSize int64,
	progress ProgressFunc,
) error {
	uploaded, err := recordedProgress(meta.ETags, size, chunkSize)
	if err != nil {
		return err
	}

	remaining := size - uploaded
	if remaining > 0 {
		needed := (remaining + chunkSize - 1) / chunkSize
		if needed > int64(maxParts-len(meta.ETags)) {
			return &ProtocolError{
				Op:   "upload",
				Body: fmt.Sprintf("use a larger chunk size, uploads are capped at %d parts", maxParts),
			}
		}
	}

	if progress != nil {
		progress(uploaded, size)
	}

	tries := 0

	for uploaded < size {
		partNumber := len(meta.ETags) + 1

		uploadURL, err := c.presignPart(ctx, meta.Info, partNumber)
		if err != nil {
			return err
		}

		win, err := chunk.Open(f, uploaded, chunkSize)
		if err != nil {
			return err
		}

		partSize := win.Size()

		etag, err := c.putChunk(ctx, uploadURL, win, partSize)
		if err != nil {
			var uploadErr *UploadFailedError
			if !errors.As(err, &uploadErr) {
				return err
			}

			tries++
			if tries >= maxChunkAttempts {
				return err
			}

			c.logger.Warn("chunk upload failed, retrying",
				slog.Int("part", partNumber),
				slog.Int("attempt", tries),
				slog.String("error", uploadErr.Message),
			)

			if sleepErr := c.sleepFunc(ctx, chunkRetryPause); sleepErr != nil {
				return sleepErr
			}

			continue
		}

		meta.ETags = append(meta.ETags, metafile.PartETag{ETag: etag, Size: partSize})

		if err := store.Save(meta); err != nil {
			return err
		}

		tries = 0
		uploaded += partSize

		if progress != nil {
			progress(uploaded, size)
		}
	}

	return nil
}

// recordedProgress sums the persisted etag sizes and verifies that every
// non-trailing part was produced with the current chunk size.
func recordedProgress(etags []metafile.PartETag, size, chunkSize int64) (int64, error) {
	var uploaded int64

	for _, e := range etags {
		uploaded += e.Size
		if uploaded == size {
			break
		}

		if e.Size != chunkSize {
			return 0, &ChunkSizeError{Expected: chunkSize, Recorded: e.Size}
		}
	}

	return uploaded, nil
}

// presignPart requests the upload URL for one part.
func (c *Client) presignPart(ctx context.Context, info *metafile.UploadInfo, partNumber int) (string, error) {
	body, err := c.call(ctx, http.MethodPost, "generatePreSigned", map[string]any{
		"key":        info.Key,
		"uploadId":   info.UploadID,
		"partNumber": partNumber,
	}, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		PreSignedURL string `json:"preSignedUrl"`
	}

	if err := unmarshalResponse(body, &resp, "generatePreSigned"); err != nil {
		return "", err
	}

	if resp.PreSignedURL == "" {
		return "", &ProtocolError{Op: "POST generatePreSigned", Body: string(body)}
	}

	return resp.PreSignedURL, nil
}

// putChunk sends one part to its presigned URL. Success is a 200 with an
// ETag header; anything else becomes an UploadFailedError carrying the
// response for diagnostics. Transport errors are wrapped the same way so
// the caller's retry loop treats them alike.
func (c *Client) putChunk(ctx context.Context, uploadURL string, body io.Reader, size int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return "", fmt.Errorf("qiwi: creating chunk request: %w", err)
	}

	req.ContentLength = size
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("qiwi: chunk upload canceled: %w", ctx.Err())
		}

		return "", &UploadFailedError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UploadFailedError{Message: err.Error()}
	}

	if resp.StatusCode == http.StatusOK {
		if etag := strings.Trim(resp.Header.Get("ETag"), `"`); etag != "" {
			return etag, nil
		}
	}

	failure := &UploadFailedError{Message: "upload for chunk failed"}

	if strings.Contains(string(respBody), workerLimitMessage) {
		failure.Body = workerLimitMessage
		return "", failure
	}

	failure.Body = string(respBody)
	failure.Headers = headerLines(resp.Header)

	return "", failure
}

// finalizeUpload stitches the parts together server-side and returns the
// resulting file record.
func (c *Client) finalizeUpload(ctx context.Context, info *metafile.UploadInfo, etags []metafile.PartETag) (*metafile.FileRecord, error) {
	type part struct {
		PartNumber int    `json:"PartNumber"`
		ETag       string `json:"ETag"`
	}

	parts := make([]part, len(etags))
	for i, e := range etags {
		parts[i] = part{PartNumber: i + 1, ETag: e.ETag}
	}

	body, err := c.call(ctx, http.MethodPost, "completeUpload", map[string]any{
		"key":       info.Key,
		"uploadId":  info.UploadID,
		"fileId":    info.FileID,
		"completed": true,
		"parts":     parts,
	}, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result *metafile.FileRecord `json:"result"`
	}

	if err := unmarshalResponse(body, &resp, "completeUpload"); err != nil {
		return nil, err
	}

	if resp.Result == nil {
		return nil, &ProtocolError{Op: "POST completeUpload", Body: string(body)}
	}

	return resp.Result, nil
}

func headerLines(h http.Header) string {
	var b strings.Builder

	for k, values := range h {
		for _, v := range values {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
