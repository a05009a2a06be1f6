package ossadapter

import (
	"io"

	"github.com/timmy/ossadapter/pkg/storage"
)

// SaveInput is one upload handed over by the host.
type SaveInput struct {
	Stream   io.ReadCloser // Read once; always closed by Save
	Filename string        // Original name supplied by the client
	ID       string        // Caller-supplied unique identifier
	MimeType string
	Encoding string
}

// FileData describes a stored file. Hosts persist at least Filename to be able to
// delete the object later.
type FileData struct {
	ID               string          `json:"id"`
	OriginalFilename string          `json:"original_filename"`
	Filename         string          `json:"filename"`
	MimeType         string          `json:"mimetype"`
	Encoding         string          `json:"encoding"`
	Meta             *storage.Result `json:"_meta,omitempty"`
}
