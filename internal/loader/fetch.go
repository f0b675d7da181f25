package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// maxFetchSize bounds remote downloads.
const maxFetchSize = 512 << 20

// Fetcher reads the raw bytes behind a reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// FileFetcher reads local files. Relative references resolve against BaseDir.
type FileFetcher struct {
	BaseDir string
}

// Fetch reads the file named by ref. A "file://" prefix is accepted.
func (f FileFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := ref
	if strings.HasPrefix(ref, "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return nil, err
		}
		p = filepath.FromSlash(u.Path)
	}
	if !filepath.IsAbs(p) && f.BaseDir != "" {
		p = filepath.Join(f.BaseDir, p)
	}
	return os.ReadFile(p)
}

// HTTPFetcher downloads http and https references.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPFetcher creates an HTTPFetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration, userAgent string) HTTPFetcher {
	return HTTPFetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
	}
}

// Fetch performs a GET request for ref.
func (h HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxFetchSize {
		return nil, fmt.Errorf("response exceeds %d bytes", maxFetchSize)
	}
	return data, nil
}

// Transport routes remote references to HTTP and everything else to the local file system.
type Transport struct {
	File FileFetcher
	HTTP HTTPFetcher
}

// Fetch dispatches on the reference scheme.
func (t Transport) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if IsRemote(ref) {
		return t.HTTP.Fetch(ctx, ref)
	}
	return t.File.Fetch(ctx, ref)
}

// IsRemote reports whether ref is an http or https URL.
func IsRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ResolveSibling resolves name relative to the directory of ref, keeping ref's transport.
func ResolveSibling(ref, name string) string {
	if IsRemote(ref) || strings.HasPrefix(ref, "file://") {
		base, err := url.Parse(ref)
		if err != nil {
			return name
		}
		rel, err := url.Parse(name)
		if err != nil {
			rel = &url.URL{Path: name}
		}
		return base.ResolveReference(rel).String()
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(ref), filepath.FromSlash(name))
}

// Resource is a fetched model plus access to files stored next to it.
type Resource struct {
	Reference string
	Data      []byte

	ctx     context.Context
	fetcher Fetcher
}

// Name returns the reference's base name without suffix.
func (r *Resource) Name() string {
	base := path.Base(strings.ReplaceAll(r.Reference, "\\", "/"))
	if i := strings.IndexAny(base, "?#"); i >= 0 && IsRemote(r.Reference) {
		base = base[:i]
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// Sibling fetches a file referenced relative to the resource (MTL libraries, glTF buffers).
func (r *Resource) Sibling(name string) ([]byte, error) {
	if r.fetcher == nil {
		return nil, fmt.Errorf("no transport for sibling %q", name)
	}
	return r.fetcher.Fetch(r.ctx, ResolveSibling(r.Reference, name))
}

// FS exposes siblings as a read-only file system for decoders that resolve URIs through fs.FS.
func (r *Resource) FS() fs.FS {
	return siblingFS{res: r}
}

type siblingFS struct {
	res *Resource
}

func (s siblingFS) Open(name string) (fs.File, error) {
	data, err := s.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &memFile{Reader: bytes.NewReader(data), name: path.Base(name)}, nil
}

func (s siblingFS) ReadFile(name string) ([]byte, error) {
	data, err := s.res.Sibling(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return data, nil
}

// memFile is an in-memory fs.File that is also its own fs.FileInfo.
type memFile struct {
	*bytes.Reader
	name string
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f, nil }
func (f *memFile) Close() error               { return nil }
func (f *memFile) Name() string               { return f.name }
func (f *memFile) Mode() fs.FileMode          { return 0o444 }
func (f *memFile) ModTime() time.Time         { return time.Time{} }
func (f *memFile) IsDir() bool                { return false }
func (f *memFile) Sys() any                   { return nil }
