package ossadapter

import (
	"net/url"
	"strings"

	"github.com/timmy/ossadapter/pkg/storage"
)

// FilenameStrategy computes the stored filename of an upload. It must be
// deterministic: the result is persisted by the caller and used again on delete.
type FilenameStrategy interface {
	Filename(id, originalFilename string) string
}

// FilenameFunc adapts a plain function to FilenameStrategy.
type FilenameFunc func(id, originalFilename string) string

// Filename calls f(id, originalFilename).
func (f FilenameFunc) Filename(id, originalFilename string) string {
	return f(id, originalFilename)
}

// DefaultFilename names files "{id}-{originalFilename}".
var DefaultFilename FilenameStrategy = FilenameFunc(func(id, originalFilename string) string {
	return id + "-" + originalFilename
})

// Location describes where a file lives so a URLStrategy can build its address.
type Location struct {
	BaseURL string // Public prefix of the bucket, as reported by the backend
	Bucket  string
	Folder  string
	Key     string
}

// URLStrategy builds the public URL of a stored file.
type URLStrategy interface {
	PublicURL(loc Location, file FileData) string
}

// URLFunc adapts a plain function to URLStrategy.
type URLFunc func(loc Location, file FileData) string

// PublicURL calls f(loc, file).
func (f URLFunc) PublicURL(loc Location, file FileData) string {
	return f(loc, file)
}

// DefaultURL appends the storage key to the backend's base URL. Each key segment
// is escaped as-is, so the URL addresses exactly the object Save wrote. The URL is
// only fetchable when the bucket is public, the object carries a public-read ACL
// (e.g. StaticParams{storage.ParamACL: "public-read"}), or the request is signed
// by other means.
var DefaultURL URLStrategy = URLFunc(func(loc Location, file FileData) string {
	return strings.TrimSuffix(loc.BaseURL, "/") + "/" + escapeKey(loc.Key)
})

// escapeKey escapes every segment of key without resolving "." or "..".
// Dot segments are percent-encoded so HTTP clients do not collapse them either.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		switch seg {
		case ".", "..":
			segments[i] = strings.Repeat("%2E", len(seg))
		default:
			segments[i] = url.PathEscape(seg)
		}
	}
	return strings.Join(segments, "/")
}

// UploadParams yields the backend parameters for one upload. It is either a
// StaticParams mapping or a ParamsResolver evaluated per file.
type UploadParams interface {
	resolve(file FileData) storage.Params
}

// StaticParams applies the same parameters to every upload.
type StaticParams storage.Params

func (p StaticParams) resolve(FileData) storage.Params {
	return storage.Params(p)
}

// ParamsResolver computes parameters from the file being uploaded. It receives the
// descriptor with ID, OriginalFilename, Filename, MimeType and Encoding filled in.
type ParamsResolver func(file FileData) storage.Params

func (f ParamsResolver) resolve(file FileData) storage.Params {
	return f(file)
}
