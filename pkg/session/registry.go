package session

import (
	"errors"
	"path/filepath"
	"sync"
)

var ErrClaimed = errors.New("session directory is already in use")

// Registry tracks session directories owned by in-flight attempts
type Registry struct {
	mu     sync.Mutex
	claims map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{claims: make(map[string]struct{})}
}

// Claim reserves path for the caller. The returned release func is idempotent.
func (r *Registry) Claim(path string) (func(), error) {
	key := filepath.Clean(path)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.claims[key]; ok {
		return nil, ErrClaimed
	}
	r.claims[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.claims, key)
			r.mu.Unlock()
		})
	}, nil
}

// Exclusive runs fn with claims frozen. Claim and release block until fn
// returns, so a path reported free by held stays free for the whole call.
// held must not escape fn.
func (r *Registry) Exclusive(fn func(held func(path string) bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(func(path string) bool {
		_, ok := r.claims[filepath.Clean(path)]
		return ok
	})
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claims)
}
