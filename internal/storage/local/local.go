// Package local implements the filesystem photo backend. It suits development
// and single-node deployments; several API instances would need a shared
// filesystem to see each other's photos.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rede-de-patas/patas-api/internal/config"
	"github.com/rede-de-patas/patas-api/internal/storage"
	"github.com/rede-de-patas/patas-api/pkg/checksum"
)

// FilesRoute is the API route that serves local photos when serve_directly is on
const FilesRoute = "/files"

func init() {
	storage.Register("local", func(cfg *config.Config) (storage.Storage, error) {
		return New(&cfg.Storage.Local, cfg.Server.BaseURL)
	})
}

// LocalStorage implements storage.Storage on the local filesystem
type LocalStorage struct {
	basePath      string
	serveDirectly bool
	baseURL       string
}

// New creates a new local filesystem storage backend
func New(cfg *config.LocalStorageConfig, serverBaseURL string) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("local storage base_path is required")
	}
	if err := os.MkdirAll(cfg.BasePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath:      filepath.Clean(cfg.BasePath),
		serveDirectly: cfg.ServeDirectly,
		baseURL:       strings.TrimSuffix(serverBaseURL, "/"),
	}, nil
}

// BasePath returns the directory photos are stored under
func (s *LocalStorage) BasePath() string { return s.basePath }

// ServeDirectly reports whether the API should serve the files itself
func (s *LocalStorage) ServeDirectly() bool { return s.serveDirectly }

// resolve maps an object path to a file below basePath, rejecting paths that
// would escape it.
func (s *LocalStorage) resolve(path string) (string, error) {
	full := filepath.Join(s.basePath, filepath.FromSlash(path))
	if full != s.basePath && !strings.HasPrefix(full, s.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object path: %s", path)
	}
	return full, nil
}

// Upload writes the object, replacing any previous file at path
func (s *LocalStorage) Upload(_ context.Context, path string, reader io.Reader, contentType string) (*storage.UploadResult, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	hr := checksum.NewReader(reader)
	if _, err := io.Copy(file, hr); err != nil {
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &storage.UploadResult{
		Path:        path,
		Size:        hr.BytesRead(),
		Checksum:    hr.Sum(),
		ContentType: contentType,
	}, nil
}

// Download opens the file at path
func (s *LocalStorage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the file and any parent directories it leaves empty
func (s *LocalStorage) Delete(_ context.Context, path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	for dir := filepath.Dir(fullPath); dir != s.basePath; dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// GetURL returns the /files URL of the object when the API serves photos
// itself, and a file:// URL otherwise. ttl is ignored.
func (s *LocalStorage) GetURL(ctx context.Context, path string, _ time.Duration) (string, error) {
	exists, err := s.Exists(ctx, path)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}

	if s.serveDirectly {
		return fmt.Sprintf("%s%s/%s", s.baseURL, FilesRoute, path), nil
	}
	fullPath, _ := s.resolve(path)
	return "file://" + fullPath, nil
}

// Exists checks if a file exists at the specified path
func (s *LocalStorage) Exists(_ context.Context, path string) (bool, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return !info.IsDir(), nil
}
