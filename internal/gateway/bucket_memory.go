package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pocketbase/pocketbase/tools/filesystem"
)

// MemoryBucket keeps objects in memory. It backs tests and local runs that
// should not touch the data dir.
type MemoryBucket struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{objects: make(map[string][]byte)}
}

func (b *MemoryBucket) Upload(_ context.Context, key string, file *filesystem.File) error {
	r, err := file.Reader.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}

	b.Put(key, content)
	return nil
}

// Put stores content under key directly.
func (b *MemoryBucket) Put(key string, content []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[key] = append([]byte(nil), content...)
}

func (b *MemoryBucket) Remove(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range keys {
		delete(b.objects, key)
	}
	return nil
}

func (b *MemoryBucket) List(_ context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := []string{}
	for key := range b.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *MemoryBucket) Serve(w http.ResponseWriter, r *http.Request, key, name string) error {
	b.mu.RLock()
	content, ok := b.objects[key]
	b.mu.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return nil
	}
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(content))
	return nil
}

// Has reports whether key is stored.
func (b *MemoryBucket) Has(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.objects[key]
	return ok
}
