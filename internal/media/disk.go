package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is the route the disk store's files are served under.
const URLPrefix = "/uploads"

// DiskStore keeps objects below Root and serves them from BaseURL/uploads.
type DiskStore struct {
	Root    string
	BaseURL string
}

func NewDiskStore(root, baseURL string) *DiskStore {
	return &DiskStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *DiskStore) Upload(ctx context.Context, data []byte, folder, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	folder = path.Clean("/" + folder)[1:]
	dir := filepath.Join(s.Root, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	name := uuid.NewString() + extension(contentType)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return s.BaseURL + path.Join(URLPrefix, folder, name), nil
}

// Delete removes the object behind url. URLs that do not point into this
// store and objects that are already gone are ignored.
func (s *DiskStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prefix := s.BaseURL + URLPrefix + "/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	rel := path.Clean("/" + strings.TrimPrefix(url, prefix))[1:]
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
