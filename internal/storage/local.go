package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/supportdesk/helpdesk-api/internal/config"
)

// Upload is one file received with a create request.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// FromFileHeaders adapts multipart form files.
func FromFileHeaders(headers []*multipart.FileHeader) []Upload {
	uploads := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		uploads = append(uploads, Upload{
			Filename: fh.Filename,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads
}

// Local writes uploads below a directory that is served under a public prefix.
type Local struct {
	dir     string
	prefix  string
	baseURL string
	maxSize int64
}

// NewLocal creates the upload directory if needed.
func NewLocal(cfg config.StorageConfig) (*Local, error) {
	if cfg.UploadDir == "" {
		return nil, errors.New("upload dir is required")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	prefix := "/" + strings.Trim(cfg.PublicPrefix, "/")
	return &Local{
		dir:     cfg.UploadDir,
		prefix:  prefix,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxSize: int64(cfg.MaxUploadBytes),
	}, nil
}

// Dir returns the directory uploads are written to.
func (l *Local) Dir() string { return l.dir }

// Prefix returns the public path prefix uploads are served under.
func (l *Local) Prefix() string { return l.prefix }

// SaveAll persists every upload in order and returns their public URLs. If
// any write fails the files already written are removed and no URL is
// returned.
func (l *Local) SaveAll(ctx context.Context, uploads []Upload) ([]string, error) {
	urls := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		if err := ctx.Err(); err != nil {
			l.Discard(urls)
			return nil, err
		}
		url, err := l.save(upload)
		if err != nil {
			l.Discard(urls)
			return nil, fmt.Errorf("store %q: %w", upload.Filename, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// Discard removes files previously returned by SaveAll. Unknown URLs are ignored.
func (l *Local) Discard(urls []string) {
	for _, url := range urls {
		name := path.Base(url)
		if name == "." || name == "/" {
			continue
		}
		_ = os.Remove(filepath.Join(l.dir, name))
	}
}

func (l *Local) save(upload Upload) (string, error) {
	src, err := upload.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := uuid.NewString() + safeExt(upload.Filename)
	target := filepath.Join(l.dir, name)

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}

	var reader io.Reader = src
	if l.maxSize > 0 {
		reader = io.LimitReader(src, l.maxSize+1)
	}
	n, err := io.Copy(dst, reader)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err == nil && l.maxSize > 0 && n > l.maxSize {
		err = fmt.Errorf("file exceeds %d bytes", l.maxSize)
	}
	if err != nil {
		_ = os.Remove(target)
		return "", err
	}

	return l.baseURL + l.prefix + "/" + name, nil
}

// safeExt keeps a short alphanumeric extension from the client filename.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
