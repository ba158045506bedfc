package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type fileEntry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
	Tags      []string  `json:"tags,omitempty"`
}

// FileBackend is the OSS L2 backend: a JSON snapshot on disk, written
// through a temp-file-then-rename so a crash mid-write can never corrupt
// it — the same idiom store.MemoryStore uses for its own snapshot.
type FileBackend struct {
	mu      sync.RWMutex
	path    string
	entries map[string]fileEntry

	saveMu sync.Mutex
	saveCh chan struct{}
	doneCh chan struct{}
}

// NewFileBackend loads (or creates) a snapshot file under dir.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	fb := &FileBackend{
		path:    filepath.Join(dir, "l2_cache.json"),
		entries: make(map[string]fileEntry),
		saveCh:  make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}
	fb.load()
	go fb.saveLoop()
	return fb, nil
}

func (fb *FileBackend) load() {
	data, err := os.ReadFile(fb.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", fb.path).Msg("cache: failed to read L2 snapshot")
		}
		return
	}
	var entries map[string]fileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().Err(err).Msg("cache: failed to decode L2 snapshot")
		return
	}
	fb.entries = entries
}

func (fb *FileBackend) requestSave() {
	select {
	case fb.saveCh <- struct{}{}:
	default:
	}
}

func (fb *FileBackend) saveLoop() {
	for {
		select {
		case <-fb.doneCh:
			return
		case <-fb.saveCh:
			time.Sleep(500 * time.Millisecond)
			fb.save()
		}
	}
}

func (fb *FileBackend) save() {
	fb.mu.RLock()
	data, err := json.Marshal(fb.entries)
	fb.mu.RUnlock()
	if err != nil {
		log.Error().Err(err).Msg("cache: failed to marshal L2 snapshot")
		return
	}

	fb.saveMu.Lock()
	defer fb.saveMu.Unlock()
	tmp := fb.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Error().Err(err).Msg("cache: failed to write L2 snapshot tmp")
		return
	}
	if err := os.Rename(tmp, fb.path); err != nil {
		log.Error().Err(err).Msg("cache: failed to rename L2 snapshot")
	}
}

func (fb *FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	fb.mu.RLock()
	e, ok := fb.entries[key]
	fb.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt) {
		fb.mu.Lock()
		delete(fb.entries, key)
		fb.mu.Unlock()
		return nil, false, nil
	}
	return e.Value, true, nil
}

func (fb *FileBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	fb.mu.Lock()
	fb.entries[key] = fileEntry{Value: value, ExpiresAt: expiresAt}
	fb.mu.Unlock()
	fb.requestSave()
	return nil
}

func (fb *FileBackend) Delete(_ context.Context, key string) error {
	fb.mu.Lock()
	delete(fb.entries, key)
	fb.mu.Unlock()
	fb.requestSave()
	return nil
}

func (fb *FileBackend) DeleteByTag(_ context.Context, tag string) error {
	fb.mu.Lock()
	for k, e := range fb.entries {
		for _, t := range e.Tags {
			if t == tag {
				delete(fb.entries, k)
				break
			}
		}
	}
	fb.mu.Unlock()
	fb.requestSave()
	return nil
}

// Close stops the background save goroutine, flushing one final write.
func (fb *FileBackend) Close() error {
	select {
	case <-fb.doneCh:
		return nil
	default:
		close(fb.doneCh)
	}
	fb.save()
	return nil
}
