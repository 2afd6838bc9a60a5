package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rede-de-patas/patas-api/internal/config"
	"github.com/rede-de-patas/patas-api/internal/storage"
)

const jpegBytes = "\xff\xd8\xff\xe0fake-jpeg"

// newTestStorage creates a LocalStorage backed by a per-test temp directory.
func newTestStorage(t *testing.T, serveDirectly bool, baseURL string) *LocalStorage {
	t.Helper()
	s, err := New(&config.LocalStorageConfig{
		BasePath:      t.TempDir(),
		ServeDirectly: serveDirectly,
	}, baseURL)
	if err != nil {
		t.Fatal("New:", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_CreatesDirectory(t *testing.T) {
	subDir := filepath.Join(t.TempDir(), "a", "b", "c")
	if _, err := New(&config.LocalStorageConfig{BasePath: subDir}, "http://localhost"); err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := os.Stat(subDir); os.IsNotExist(err) {
		t.Error("New() did not create base directory")
	}
}

func TestNew_EmptyBasePath(t *testing.T) {
	if _, err := New(&config.LocalStorageConfig{}, ""); err == nil {
		t.Error("New() = nil error, want error for empty base_path")
	}
}

// ---------------------------------------------------------------------------
// Upload
// ---------------------------------------------------------------------------

func TestUpload(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	result, err := s.Upload(ctx, "animals/5/photo.jpg", strings.NewReader(jpegBytes), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if result.Path != "animals/5/photo.jpg" {
		t.Errorf("Path = %q, want animals/5/photo.jpg", result.Path)
	}
	if result.Size != int64(len(jpegBytes)) {
		t.Errorf("Size = %d, want %d", result.Size, len(jpegBytes))
	}
	if len(result.Checksum) != 64 {
		t.Errorf("Checksum len = %d, want 64 (SHA256 hex)", len(result.Checksum))
	}
	if result.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q, want image/jpeg", result.ContentType)
	}

	if _, err := os.Stat(filepath.Join(s.BasePath(), "animals", "5", "photo.jpg")); err != nil {
		t.Errorf("uploaded file missing: %v", err)
	}
}

func TestUpload_RejectsEscapingPath(t *testing.T) {
	s := newTestStorage(t, false, "")

	if _, err := s.Upload(context.Background(), "../../etc/evil.jpg", strings.NewReader("x"), "image/jpeg"); err == nil {
		t.Error("Upload() = nil error, want error for path outside base directory")
	}
}

func TestUpload_SameContentSameChecksum(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	r1, err := s.Upload(ctx, "a.jpg", strings.NewReader(jpegBytes), "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := s.Upload(ctx, "b.jpg", strings.NewReader(jpegBytes), "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if r1.Checksum != r2.Checksum {
		t.Errorf("same content produced different checksums: %q vs %q", r1.Checksum, r2.Checksum)
	}
}

// ---------------------------------------------------------------------------
// Download
// ---------------------------------------------------------------------------

func TestDownload(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	if _, err := s.Upload(ctx, "dl.jpg", strings.NewReader(jpegBytes), "image/jpeg"); err != nil {
		t.Fatal("Upload:", err)
	}

	rc, err := s.Download(ctx, "dl.jpg")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != jpegBytes {
		t.Errorf("Download() content = %q, want %q", data, jpegBytes)
	}
}

func TestDownload_NotFound(t *testing.T) {
	s := newTestStorage(t, false, "")

	_, err := s.Download(context.Background(), "nonexistent.jpg")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Download() err = %v, want storage.ErrNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestDelete(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	if _, err := s.Upload(ctx, "animals/9/x.jpg", strings.NewReader("bye"), "image/jpeg"); err != nil {
		t.Fatal("Upload:", err)
	}
	if err := s.Delete(ctx, "animals/9/x.jpg"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if exists, _ := s.Exists(ctx, "animals/9/x.jpg"); exists {
		t.Error("file still exists after Delete()")
	}
	if _, err := os.Stat(filepath.Join(s.BasePath(), "animals")); !os.IsNotExist(err) {
		t.Error("Delete() should clean up empty parent directories")
	}
	if _, err := os.Stat(s.BasePath()); err != nil {
		t.Errorf("Delete() removed the base directory: %v", err)
	}
}

func TestDelete_NonExistentFile(t *testing.T) {
	s := newTestStorage(t, false, "")

	if err := s.Delete(context.Background(), "does-not-exist.jpg"); err != nil {
		t.Errorf("Delete() error for non-existent file: %v (want nil)", err)
	}
}

// ---------------------------------------------------------------------------
// Exists / GetURL
// ---------------------------------------------------------------------------

func TestExists(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	if ok, err := s.Exists(ctx, "no-such.jpg"); err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v; want false, nil", ok, err)
	}

	if _, err := s.Upload(ctx, "yes.jpg", strings.NewReader("data"), "image/jpeg"); err != nil {
		t.Fatal("Upload:", err)
	}
	if ok, err := s.Exists(ctx, "yes.jpg"); err != nil || !ok {
		t.Errorf("Exists(present) = %v, %v; want true, nil", ok, err)
	}
}

func TestGetURL_ServeDirectly(t *testing.T) {
	s := newTestStorage(t, true, "http://api.example.com/")
	ctx := context.Background()

	if _, err := s.Upload(ctx, "animals/5/p.jpg", strings.NewReader("data"), "image/jpeg"); err != nil {
		t.Fatal("Upload:", err)
	}

	url, err := s.GetURL(ctx, "animals/5/p.jpg", time.Hour)
	if err != nil {
		t.Fatalf("GetURL() error: %v", err)
	}
	if want := "http://api.example.com/files/animals/5/p.jpg"; url != want {
		t.Errorf("GetURL() = %q, want %q", url, want)
	}
}

func TestGetURL_LocalFile(t *testing.T) {
	s := newTestStorage(t, false, "")
	ctx := context.Background()

	if _, err := s.Upload(ctx, "p.jpg", strings.NewReader("x"), "image/jpeg"); err != nil {
		t.Fatal("Upload:", err)
	}

	url, err := s.GetURL(ctx, "p.jpg", time.Hour)
	if err != nil {
		t.Fatalf("GetURL() error: %v", err)
	}
	if !strings.HasPrefix(url, "file://") || !strings.HasSuffix(url, "p.jpg") {
		t.Errorf("GetURL() = %q, want file:// URL ending in p.jpg", url)
	}
}

func TestGetURL_NotFound(t *testing.T) {
	s := newTestStorage(t, true, "http://example.com")

	if _, err := s.GetURL(context.Background(), "missing.jpg", time.Hour); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetURL() err = %v, want storage.ErrNotFound", err)
	}
}
