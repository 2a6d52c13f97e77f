package video

import (
	"strconv"
	"sync"
	"time"
)

const requestKeyLen = 100

// RequestKey derives the de-duplication key for a video request, a prefix
// of the source image URL or a timestamp when no URL is given.
func RequestKey(imageURL string) string {
	if imageURL == "" {
		return strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	if len(imageURL) > requestKeyLen {
		return imageURL[:requestKeyLen]
	}
	return imageURL
}

// Registry guarantees at most one in-flight upstream submission per image.
// It is injectable so it can be reset between tests and scoped per server
// instance.
type Registry struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]time.Time)}
}

// Begin is an atomic check-then-insert. It returns false when the key is
// already being processed.
func (r *Registry) Begin(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		return false
	}
	r.entries[key] = time.Now()
	return true
}

func (r *Registry) StartedAt(key string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	startedAt, ok := r.entries[key]
	return startedAt, ok
}

// Clear must be called on every terminal outcome, otherwise the entry
// blocks further requests for the same image.
func (r *Registry) Clear(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
