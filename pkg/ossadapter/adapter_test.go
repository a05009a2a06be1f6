package ossadapter

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/timmy/ossadapter/pkg/storage"
)

// fakeStorage records every call made by the adapter.
type fakeStorage struct {
	mu        sync.Mutex
	baseURL   string
	putErr    error
	deleteErr error
	puts      []putCall
	deletes   []deleteCall
}

type putCall struct {
	key    string
	body   string
	params storage.Params
}

type deleteCall struct {
	key  string
	opts storage.Params
}

func (f *fakeStorage) PutStream(ctx context.Context, key string, body io.Reader, params storage.Params) (*storage.Result, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.puts = append(f.puts, putCall{key: key, body: string(data), params: params})
	f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &storage.Result{Bucket: "assets", Key: key, ETag: `"etag"`}, nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string, opts storage.Params) (*storage.Result, error) {
	f.mu.Lock()
	f.deletes = append(f.deletes, deleteCall{key: key, opts: opts})
	f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &storage.Result{Bucket: "assets", Key: key, DeleteMarker: true}, nil
}

func (f *fakeStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("content of " + key)), nil
}

func (f *fakeStorage) BaseURL() string {
	if f.baseURL != "" {
		return f.baseURL
	}
	return "https://assets.oss-cn-hangzhou.aliyuncs.com"
}

func (f *fakeStorage) Bucket() string { return "assets" }

// trackingStream reports whether Close was called.
type trackingStream struct {
	io.Reader
	closed bool
}

func (s *trackingStream) Close() error {
	s.closed = true
	return nil
}

func newStream(content string) *trackingStream {
	return &trackingStream{Reader: strings.NewReader(content)}
}

func newTestAdapter(t *testing.T, cfg Config, client *fakeStorage) *Adapter {
	t.Helper()
	if cfg.Bucket == "" {
		cfg.Bucket = "assets"
	}
	a, err := NewWithStorage(cfg, client)
	if err != nil {
		t.Fatalf("NewWithStorage: %v", err)
	}
	return a
}

func TestNew_RequiresBucket(t *testing.T) {
	configs := []Config{
		{},
		{Folder: "uploads"},
		{Storage: storage.Config{Bucket: "from-storage", Region: "oss-cn-hangzhou"}},
	}
	for _, cfg := range configs {
		if _, err := New(cfg); !errors.Is(err, ErrConfiguration) {
			t.Errorf("New(%+v) error = %v, want ErrConfiguration", cfg, err)
		}
	}

	if _, err := NewWithStorage(Config{}, &fakeStorage{}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("NewWithStorage without bucket error = %v, want ErrConfiguration", err)
	}
	if _, err := NewWithStorage(Config{Bucket: "assets"}, nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("NewWithStorage without client error = %v, want ErrConfiguration", err)
	}
}

func TestNew_BuildsBackend(t *testing.T) {
	a, err := New(Config{
		Bucket: "assets",
		Folder: "uploads",
		Storage: storage.Config{
			Type:      storage.StorageTypeOSS,
			Region:    "oss-cn-hangzhou",
			AccessKey: "ak",
			SecretKey: "sk",
			Bucket:    "ignored",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.client.Bucket() != "assets" {
		t.Errorf("adapter bucket must override storage bucket, got %q", a.client.Bucket())
	}

	got := a.PublicURL(FileData{Filename: "42-cat.png"})
	want := "https://assets.oss-cn-hangzhou.aliyuncs.com/uploads/42-cat.png"
	if got != want {
		t.Errorf("PublicURL() = %q, want %q", got, want)
	}
}

func TestDefaultFilename_Deterministic(t *testing.T) {
	a := newTestAdapter(t, Config{}, &fakeStorage{})

	first := a.Filename("42", "cat.png")
	second := a.Filename("42", "cat.png")
	if first != "42-cat.png" {
		t.Errorf("Filename() = %q, want 42-cat.png", first)
	}
	if first != second {
		t.Errorf("Filename() not deterministic: %q != %q", first, second)
	}
}

func TestSave_ScenarioKeyAndURL(t *testing.T) {
	client := &fakeStorage{}
	a := newTestAdapter(t, Config{Bucket: "assets", Folder: "uploads"}, client)
	stream := newStream("png bytes")

	file, err := a.Save(context.Background(), SaveInput{
		Stream:   stream,
		Filename: "cat.png",
		ID:       "42",
		MimeType: "image/png",
		Encoding: "7bit",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(client.puts) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(client.puts))
	}
	put := client.puts[0]
	if put.key != "uploads/42-cat.png" {
		t.Errorf("upload key = %q, want uploads/42-cat.png", put.key)
	}
	if put.body != "png bytes" {
		t.Errorf("upload body = %q", put.body)
	}
	if v, _ := put.params.Get(storage.ParamContentType); v != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", v)
	}
	if !stream.closed {
		t.Error("stream was not closed after upload")
	}

	if file.ID != "42" || file.OriginalFilename != "cat.png" || file.Filename != "42-cat.png" ||
		file.MimeType != "image/png" || file.Encoding != "7bit" {
		t.Errorf("unexpected descriptor: %+v", file)
	}
	if file.Meta == nil || file.Meta.Key != "uploads/42-cat.png" {
		t.Errorf("expected backend metadata, got %+v", file.Meta)
	}

	url := a.PublicURL(FileData{Filename: "42-cat.png"})
	if url != "https://assets.oss-cn-hangzhou.aliyuncs.com/uploads/42-cat.png" {
		t.Errorf("PublicURL() = %q", url)
	}
}

func TestKey_FolderJoining(t *testing.T) {
	tests := []struct {
		folder   string
		filename string
		expected string
	}{
		{"", "42-cat.png", "42-cat.png"},
		{"uploads", "42-cat.png", "uploads/42-cat.png"},
		{"uploads/", "42-cat.png", "uploads/42-cat.png"},
		{"/uploads/", "/42-cat.png", "uploads/42-cat.png"},
		{"a/b", "x", "a/b/x"},
	}

	for _, tc := range tests {
		a := newTestAdapter(t, Config{Folder: tc.folder}, &fakeStorage{})
		key := a.Key(tc.filename)
		if key != tc.expected {
			t.Errorf("Key(%q) with folder %q = %q, want %q", tc.filename, tc.folder, key, tc.expected)
		}
		if strings.Contains(key, "//") || strings.HasPrefix(key, "/") {
			t.Errorf("Key(%q) with folder %q produced %q", tc.filename, tc.folder, key)
		}
	}
}

func TestPublicURL_EmptyFolder(t *testing.T) {
	a := newTestAdapter(t, Config{}, &fakeStorage{baseURL: "https://cdn.example.com/"})
	got := a.PublicURL(FileData{Filename: "42-cat.png"})
	if got != "https://cdn.example.com/42-cat.png" {
		t.Errorf("PublicURL() = %q", got)
	}
}

func TestPublicURL_MatchesKeyLiterally(t *testing.T) {
	client := &fakeStorage{}
	a := newTestAdapter(t, Config{Bucket: "assets", Folder: "uploads"}, client)

	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"dot segments", "../../secret.txt", "/uploads/42-../%2E%2E/secret.txt"},
		{"current dir", "./a.txt", "/uploads/42-./a.txt"},
		{"nested dot", "x/./y.txt", "/uploads/42-x/%2E/y.txt"},
		{"spaces and query chars", "my cat?.png", "/uploads/42-my%20cat%3F.png"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			file, err := a.Save(context.Background(), SaveInput{
				Stream:   io.NopCloser(strings.NewReader("x")),
				Filename: tc.filename,
				ID:       "42",
			})
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			got := a.PublicURL(*file)
			if got != "https://assets.oss-cn-hangzhou.aliyuncs.com"+tc.want {
				t.Errorf("PublicURL() = %q, want suffix %q", got, tc.want)
			}
			if key := a.Key(file.Filename); key != "uploads/42-"+tc.filename {
				t.Errorf("Key() = %q", key)
			}
		})
	}
}

func TestSave_RoundTripDeleteKey(t *testing.T) {
	for _, folder := range []string{"", "uploads", "nested/dir"} {
		client := &fakeStorage{}
		a := newTestAdapter(t, Config{Folder: folder}, client)

		file, err := a.Save(context.Background(), SaveInput{Stream: newStream("x"), Filename: "report.pdf", ID: "7"})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}

		// The host only keeps the filename; rebuild the descriptor from it.
		if _, err := a.Delete(context.Background(), &FileData{Filename: file.Filename}, nil); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		if client.deletes[0].key != client.puts[0].key {
			t.Errorf("folder %q: delete key %q != upload key %q", folder, client.deletes[0].key, client.puts[0].key)
		}
	}
}

func TestSave_ParamsResolver(t *testing.T) {
	client := &fakeStorage{}
	var seen []FileData
	a := newTestAdapter(t, Config{
		Folder: "uploads",
		UploadParams: ParamsResolver(func(file FileData) storage.Params {
			seen = append(seen, file)
			return storage.Params{
				"content-type":       "application/octet-stream",
				storage.ParamACL:     "public-read",
				"Meta-Original-Name": file.OriginalFilename,
			}
		}),
	}, client)

	_, err := a.Save(context.Background(), SaveInput{
		Stream:   newStream("data"),
		Filename: "cat.png",
		ID:       "42",
		MimeType: "image/png",
		Encoding: "base64",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != 1 {
		t.Fatalf("resolver called %d times, want 1", len(seen))
	}
	want := FileData{ID: "42", OriginalFilename: "cat.png", Filename: "42-cat.png", MimeType: "image/png", Encoding: "base64"}
	if seen[0] != want {
		t.Errorf("resolver got %+v, want %+v", seen[0], want)
	}

	params := client.puts[0].params
	if v, _ := params.Get(storage.ParamContentType); v != "application/octet-stream" {
		t.Errorf("resolved params must override the MIME default, got %q", v)
	}
	if len(params) != 3 {
		t.Errorf("expected 3 params after merge, got %v", params)
	}
	if v, _ := params.Get(storage.ParamACL); v != "public-read" {
		t.Errorf("ACL = %q", v)
	}
}

func TestSave_StaticParams(t *testing.T) {
	client := &fakeStorage{}
	a := newTestAdapter(t, Config{
		UploadParams: StaticParams{storage.ParamCacheControl: "max-age=31536000"},
	}, client)

	if _, err := a.Save(context.Background(), SaveInput{Stream: newStream("x"), Filename: "a.txt", ID: "1", MimeType: "text/plain"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	params := client.puts[0].params
	if v, _ := params.Get(storage.ParamCacheControl); v != "max-age=31536000" {
		t.Errorf("Cache-Control = %q", v)
	}
	if v, _ := params.Get(storage.ParamContentType); v != "text/plain" {
		t.Errorf("Content-Type = %q", v)
	}
}

func TestSave_BackendErrorReleasesStream(t *testing.T) {
	networkErr := errors.New("dial tcp: connection reset by peer")
	client := &fakeStorage{putErr: networkErr}
	a := newTestAdapter(t, Config{Folder: "uploads"}, client)
	stream := newStream("payload")

	file, err := a.Save(context.Background(), SaveInput{Stream: stream, Filename: "cat.png", ID: "42"})
	if err != networkErr {
		t.Errorf("Save error = %v, want the backend error unchanged", err)
	}
	if file != nil {
		t.Errorf("expected no descriptor on failure, got %+v", file)
	}
	if !stream.closed {
		t.Error("stream was not released after a failed upload")
	}
}

func TestSave_InvalidInput(t *testing.T) {
	client := &fakeStorage{}
	a := newTestAdapter(t, Config{}, client)

	tests := []struct {
		name  string
		input SaveInput
	}{
		{"missing id", SaveInput{Filename: "cat.png"}},
		{"missing filename", SaveInput{ID: "42"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stream := newStream("x")
			tc.input.Stream = stream
			_, err := a.Save(context.Background(), tc.input)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
			if !stream.closed {
				t.Error("stream was not released")
			}
		})
	}

	if _, err := a.Save(context.Background(), SaveInput{ID: "1", Filename: "a"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil stream error = %v, want ErrInvalidArgument", err)
	}
	if len(client.puts) != 0 {
		t.Errorf("backend contacted %d times for invalid input", len(client.puts))
	}
}

func TestDelete_NilFile(t *testing.T) {
	client := &fakeStorage{}
	a := newTestAdapter(t, Config{}, client)

	var nilFile *FileData
	if _, err := a.Delete(context.Background(), nilFile, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Delete(nil) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := a.Delete(context.Background(), &FileData{}, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Delete(empty) error = %v, want ErrInvalidArgument", err)
	}
	if len(client.deletes) != 0 {
		t.Errorf("backend contacted %d times", len(client.deletes))
	}
}

func TestDelete_PassesOptionsAndResult(t *testing.T) {
	client := &fakeStorage{}
	a := newTestAdapter(t, Config{Folder: "uploads"}, client)

	res, err := a.Delete(context.Background(), &FileData{Filename: "42-cat.png"}, storage.Params{storage.ParamVersionID: "v3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Key != "uploads/42-cat.png" || !res.DeleteMarker {
		t.Errorf("unexpected result: %+v", res)
	}
	if client.deletes[0].opts[storage.ParamVersionID] != "v3" {
		t.Errorf("options not forwarded: %v", client.deletes[0].opts)
	}
}

func TestDelete_BackendError(t *testing.T) {
	notFound := errors.New("NoSuchKey")
	a := newTestAdapter(t, Config{}, &fakeStorage{deleteErr: notFound})

	_, err := a.Delete(context.Background(), &FileData{Filename: "gone.txt"}, nil)
	if err != notFound {
		t.Errorf("Delete error = %v, want backend error unchanged", err)
	}
}

func TestCustomStrategies(t *testing.T) {
	client := &fakeStorage{}
	a := newTestAdapter(t, Config{
		Folder: "avatars",
		Filename: FilenameFunc(func(id, original string) string {
			return id + strings.ToLower(original[strings.LastIndex(original, "."):])
		}),
		URL: URLFunc(func(loc Location, file FileData) string {
			return "https://cdn.example.com/" + loc.Key
		}),
	}, client)

	file, err := a.Save(context.Background(), SaveInput{Stream: newStream("x"), Filename: "Me.JPG", ID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.puts[0].key != "avatars/u1.jpg" {
		t.Errorf("key = %q", client.puts[0].key)
	}
	if url := a.PublicURL(*file); url != "https://cdn.example.com/avatars/u1.jpg" {
		t.Errorf("PublicURL() = %q", url)
	}
}

func TestOpen(t *testing.T) {
	a := newTestAdapter(t, Config{Folder: "uploads"}, &fakeStorage{})

	rc, err := a.Open(context.Background(), &FileData{Filename: "42-cat.png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "content of uploads/42-cat.png" {
		t.Errorf("unexpected content %q", data)
	}

	if _, err := a.Open(context.Background(), nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Open(nil) error = %v", err)
	}
}

func TestSave_Concurrent(t *testing.T) {
	client := &fakeStorage{}
	a := newTestAdapter(t, Config{Folder: "uploads"}, client)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			if _, err := a.Save(context.Background(), SaveInput{Stream: newStream(id), Filename: "f.txt", ID: id}); err != nil {
				t.Errorf("Save: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if len(client.puts) != 20 {
		t.Errorf("expected 20 uploads, got %d", len(client.puts))
	}
}
