package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
)

// Bucket is the object storage surface used by the application.
type Bucket interface {
	// Upload streams file to key. Multipart files are read from their
	// spooled temp file, never loaded whole.
	Upload(ctx context.Context, key string, file *filesystem.File) error
	// Remove deletes keys. Empty keys and keys that do not exist are
	// skipped.
	Remove(ctx context.Context, keys ...string) error
	// List returns the keys stored under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	Serve(w http.ResponseWriter, r *http.Request, key, name string) error
}

// FilesystemBucket stores objects in the PocketBase filesystem, which is the
// local data dir or S3 depending on the app settings.
type FilesystemBucket struct {
	app core.App
}

func NewFilesystemBucket(app core.App) *FilesystemBucket {
	return &FilesystemBucket{app: app}
}

func (b *FilesystemBucket) Upload(_ context.Context, key string, file *filesystem.File) error {
	fsys, err := b.app.NewFilesystem()
	if err != nil {
		return fmt.Errorf("open filesystem: %w", err)
	}
	defer fsys.Close()

	if err := fsys.UploadFile(file, key); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (b *FilesystemBucket) Remove(_ context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	fsys, err := b.app.NewFilesystem()
	if err != nil {
		return fmt.Errorf("open filesystem: %w", err)
	}
	defer fsys.Close()

	var errs []error
	for _, key := range keys {
		if key == "" {
			continue
		}
		exists, err := fsys.Exists(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("stat %s: %w", key, err))
			continue
		}
		if !exists {
			continue
		}
		if err := fsys.Delete(key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (b *FilesystemBucket) List(_ context.Context, prefix string) ([]string, error) {
	fsys, err := b.app.NewFilesystem()
	if err != nil {
		return nil, fmt.Errorf("open filesystem: %w", err)
	}
	defer fsys.Close()

	objects, err := fsys.List(prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (b *FilesystemBucket) Serve(w http.ResponseWriter, r *http.Request, key, name string) error {
	fsys, err := b.app.NewFilesystem()
	if err != nil {
		return fmt.Errorf("open filesystem: %w", err)
	}
	defer fsys.Close()

	return fsys.Serve(w, r, key, name)
}

// EmptyFile reports whether file is missing or has no content.
func EmptyFile(file *filesystem.File) bool {
	return file == nil || file.Reader == nil || file.Size <= 0
}

// CleanFileName strips any directory part from a client supplied file name so
// it can be used as the last segment of a storage key.
func CleanFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(path.Clean("/" + name))
	if name == "/" || name == "." || name == ".." {
		return ""
	}
	return name
}
