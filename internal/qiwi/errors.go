package qiwi

import "fmt"

// ProtocolError reports a service response that cannot be used: a body
// that does not parse, a missing success flag, or a request the service
// refused outright. Body carries the raw response text for diagnosis.
type ProtocolError struct {
	Op   string
	Body string
}

func (e *ProtocolError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("qiwi: %s failed", e.Op)
	}

	return fmt.Sprintf("qiwi: %s failed: %s", e.Op, e.Body)
}

// UploadFailedError is a single chunk transfer that did not produce an
// entity tag. It carries the response body and headers so the operator
// can see what the storage backend actually said. Retried locally; only
// surfaces after the retry limit is exhausted.
type UploadFailedError struct {
	Message string
	Body    string
	Headers string
}

func (e *UploadFailedError) Error() string {
	s := e.Message

	if e.Body != "" {
		s += "\n\n" + e.Body
	}

	if e.Headers != "" {
		s += "\n\n" + e.Headers
	}

	return s
}

// ChunkSizeError means the persisted upload progress was produced with a
// different chunk size than the current invocation is using. Resuming
// would corrupt the part layout, so the upload refuses to start.
type ChunkSizeError struct {
	Expected int64 // chunk size of the current invocation
	Recorded int64 // chunk size found in the progress metadata
}

func (e *ChunkSizeError) Error() string {
	return fmt.Sprintf(
		"qiwi: all non-trailing parts must have the same length: expected size %d, chunk size in metadata %d",
		e.Expected, e.Recorded,
	)
}
