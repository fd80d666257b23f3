// Package blobstore hands out short-lived URLs for in-memory blobs.
//
// A URL stays resolvable until it is revoked. The store also serves live
// URLs over HTTP so a preview page can point an embed tag at them.
package blobstore

import (
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/gaurav-prasanna/quillpipe/core"
	"github.com/google/uuid"
)

// DefaultPrefix is used for URLs that are never served over HTTP.
const DefaultPrefix = "blob:quillpipe/"

// Store maps blob URLs to blobs. It is safe for concurrent use; revocation
// timers run on their own goroutines.
type Store struct {
	prefix string

	mu    sync.RWMutex
	blobs map[string]core.Blob
}

// New creates a store whose URLs start with prefix. An empty prefix uses
// DefaultPrefix. A prefix such as "http://localhost:8080/blob/" makes the
// URLs fetchable when the store is mounted at /blob/.
func New(prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{prefix: prefix, blobs: make(map[string]core.Blob)}
}

// Create registers b and returns its URL.
func (s *Store) Create(b core.Blob) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.blobs[id] = b
	s.mu.Unlock()
	return s.prefix + id
}

// Get resolves a URL created by this store.
func (s *Store) Get(url string) (core.Blob, bool) {
	id, ok := s.id(url)
	if !ok {
		return core.Blob{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[id]
	return b, ok
}

// Revoke releases a URL. It reports whether the URL was live.
func (s *Store) Revoke(url string) bool {
	id, ok := s.id(url)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, live := s.blobs[id]; !live {
		return false
	}
	delete(s.blobs, id)
	return true
}

// Len returns the number of live URLs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func (s *Store) id(url string) (string, bool) {
	if !strings.HasPrefix(url, s.prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, s.prefix), true
}

// ServeHTTP serves a live blob by the last segment of the request path.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := path.Base(r.URL.Path)
	s.mu.RLock()
	b, ok := s.blobs[id]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", b.Type)
	w.Header().Set("Content-Length", strconv.Itoa(b.Size()))
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}
	w.Write(b.Bytes())
}
