package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/supportdesk/helpdesk-api/internal/config"
)

func bytesUpload(name, body string) Upload {
	return Upload{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func newLocal(t *testing.T, maxBytes int) *Local {
	t.Helper()
	l, err := NewLocal(config.StorageConfig{
		UploadDir:      filepath.Join(t.TempDir(), "uploads"),
		PublicPrefix:   "uploads/",
		PublicBaseURL:  "http://localhost:8000/",
		MaxUploadBytes: maxBytes,
	})
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	return l
}

func TestSaveAllKeepsOrderAndURLs(t *testing.T) {
	l := newLocal(t, 0)

	urls, err := l.SaveAll(context.Background(), []Upload{
		bytesUpload("first.PNG", "one"),
		bytesUpload("second.tar.gz", "two"),
		bytesUpload("../../etc/passwd", "three"),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(urls) != 3 {
		t.Fatalf("expected 3 urls, got %d", len(urls))
	}
	if !strings.HasPrefix(urls[0], "http://localhost:8000/uploads/") || !strings.HasSuffix(urls[0], ".png") {
		t.Errorf("unexpected url %q", urls[0])
	}
	if strings.Contains(urls[2], "..") || strings.Contains(urls[2], "passwd") {
		t.Errorf("client path leaked into url %q", urls[2])
	}

	data, err := os.ReadFile(filepath.Join(l.Dir(), filepath.Base(urls[1])))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "two" {
		t.Errorf("expected file contents to round trip, got %q", data)
	}
}

func TestSaveAllRollsBackOnFailure(t *testing.T) {
	l := newLocal(t, 0)
	broken := Upload{
		Filename: "bad.png",
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("disk on fire")
		},
	}

	urls, err := l.SaveAll(context.Background(), []Upload{bytesUpload("ok.png", "ok"), broken})
	if err == nil {
		t.Fatal("expected failure")
	}
	if urls != nil {
		t.Errorf("no urls should be returned on failure, got %v", urls)
	}
	entries, _ := os.ReadDir(l.Dir())
	if len(entries) != 0 {
		t.Errorf("expected earlier files to be removed, found %d", len(entries))
	}
}

func TestSaveAllEnforcesMaxSize(t *testing.T) {
	l := newLocal(t, 4)
	if _, err := l.SaveAll(context.Background(), []Upload{bytesUpload("big.png", "12345")}); err == nil {
		t.Fatal("expected oversize upload to fail")
	}
	if _, err := l.SaveAll(context.Background(), []Upload{bytesUpload("fits.png", "1234")}); err != nil {
		t.Fatalf("upload at the limit should pass: %v", err)
	}
}

func TestSaveAllEmpty(t *testing.T) {
	l := newLocal(t, 0)
	urls, err := l.SaveAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if urls == nil || len(urls) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", urls)
	}
}
