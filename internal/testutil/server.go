package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PartServer is an httptest server that plays the role of the signed-URL
// storage endpoint. Each part PUTs to /parts/{n}; successful PUTs answer 200
// with a quoted fingerprint header. Individual parts can be primed to fail a
// number of times before succeeding, and the server tracks the maximum number
// of simultaneously open requests it observed.
type PartServer struct {
	*httptest.Server

	// Delay is applied to every request so transfers overlap in tests.
	Delay time.Duration

	mu            sync.Mutex
	failRemaining map[int]int
	omitHeader    map[int]bool
	received      map[int][]byte
	puts          map[int]int
	active        int
	maxActive     int
}

// NewPartServer starts a part server. Callers own shutdown via Close.
func NewPartServer() *PartServer {
	s := &PartServer{
		failRemaining: make(map[int]int),
		omitHeader:    make(map[int]bool),
		received:      make(map[int][]byte),
		puts:          make(map[int]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URLFor returns the signed URL for the given part number.
func (s *PartServer) URLFor(part int) string {
	return fmt.Sprintf("%s/parts/%d", s.URL, part)
}

// FailTimes primes a part to answer 500 for its next n PUTs.
func (s *PartServer) FailTimes(part, n int) {
	s.mu.Lock()
	s.failRemaining[part] = n
	s.mu.Unlock()
}

// OmitFingerprint makes successful PUTs for a part answer without the
// fingerprint header.
func (s *PartServer) OmitFingerprint(part int) {
	s.mu.Lock()
	s.omitHeader[part] = true
	s.mu.Unlock()
}

// MaxActive returns the maximum number of simultaneously open requests observed.
func (s *PartServer) MaxActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxActive
}

// Puts returns how many PUTs arrived for the given part.
func (s *PartServer) Puts(part int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts[part]
}

// Received returns the body of the last successful PUT for the given part.
func (s *PartServer) Received(part int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received[part]
}

func (s *PartServer) handle(w http.ResponseWriter, r *http.Request) {
	part, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/parts/"))
	if err != nil || r.Method != http.MethodPut {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	s.mu.Lock()
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	s.puts[part]++
	delay := s.Delay
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	if s.failRemaining[part] > 0 {
		s.failRemaining[part]--
		s.mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	s.received[part] = body
	omit := s.omitHeader[part]
	s.mu.Unlock()

	if !omit {
		w.Header().Set("ETag", fmt.Sprintf("%q", fmt.Sprintf("fp-%d", part)))
	}
	w.WriteHeader(http.StatusOK)
}
