package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrInvalidURL is returned for URLs that cannot be fetched
var ErrInvalidURL = errors.New("invalid url")

// RemoteFetcher downloads files from http(s) URLs as streams.
type RemoteFetcher struct {
	client   *resty.Client
	maxBytes int64
}

// FetchConfig holds configuration for the remote fetcher.
type FetchConfig struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	// AllowPrivateNetworks disables the dial-time block on loopback, private and
	// link-local addresses
	AllowPrivateNetworks bool
}

// RemoteFile is an open remote download.
type RemoteFile struct {
	Body     io.ReadCloser
	Filename string
	MimeType string
	Size     int64 // -1 when unknown
}

// NewRemoteFetcher creates a new remote fetcher.
// Parameters:
//   - cfg: timeout, size limit and user agent.
//
// Returns:
//   - *RemoteFetcher: initialized fetcher.
func NewRemoteFetcher(cfg *FetchConfig) *RemoteFetcher {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if !cfg.AllowPrivateNetworks {
		// Checked per connection, so redirects and DNS rebinding are covered too
		dialer.Control = rejectPrivateAddress
	}

	client := resty.New()
	client.SetTransport(&http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	})
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	client.SetTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &RemoteFetcher{
		client:   client,
		maxBytes: cfg.MaxBytes,
	}
}

// Fetch starts downloading rawURL. The response body is not buffered; the caller
// must close RemoteFile.Body.
func (f *RemoteFetcher) Fetch(ctx context.Context, rawURL string) (*RemoteFile, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u.Redacted(), err)
	}

	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		body.Close()
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %d", u.Redacted(), resp.StatusCode())
	}

	size := resp.RawResponse.ContentLength
	if f.maxBytes > 0 && size > f.maxBytes {
		body.Close()
		return nil, ErrTooLarge
	}

	return &RemoteFile{
		Body:     body,
		Filename: remoteFilename(u, resp.Header()),
		MimeType: resp.Header().Get("Content-Type"),
		Size:     size,
	}, nil
}

// remoteFilename prefers Content-Disposition, then the last path segment.
func remoteFilename(u *url.URL, header http.Header) string {
	if cd := header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return path.Base(params["filename"])
		}
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// rejectPrivateAddress refuses connections to addresses that are not publicly routable
func rejectPrivateAddress(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidURL, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidURL, address)
	}
	if !isPublicAddr(addr) {
		return fmt.Errorf("%w: non-public address %s", ErrInvalidURL, addr)
	}
	return nil
}

func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case addr.IsLoopback(), addr.IsPrivate(), addr.IsUnspecified(),
		addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(), addr.IsMulticast():
		return false
	case sharedAddressSpace.Contains(addr):
		return false
	}
	return true
}
