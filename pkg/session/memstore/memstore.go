package memstore

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// ErrClosed is returned when the store is used after Close.
var ErrClosed = errors.New("memstore: closed")

// entry holds a stored session with its expiration time.
type entry struct {
	expiresAt time.Time
	session   *session.Session
}

// Store keeps sessions in process memory with TTL expiration and optional
// LRU eviction when a maximum entry count is configured.
//
// Sessions are lost on restart and not shared between instances; it is the
// default adapter and meant for development and single-node deployments.
type Store struct {
	items    map[string]*list.Element
	eviction *list.List
	users    map[string]map[string]struct{}
	opts     *options
	done     chan struct{}
	mu       sync.Mutex
	closed   bool
}

// New creates a memory store and starts its janitor when a cleanup
// interval is configured.
//
//	s := memstore.New(
//	    memstore.WithCleanupInterval(time.Minute),
//	    memstore.WithMaxEntries(100_000),
//	)
//	defer s.Close()
func New(opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	s := &Store{
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		users:    make(map[string]map[string]struct{}),
		opts:     o,
		done:     make(chan struct{}),
	}

	if o.cleanupInterval > 0 {
		go s.janitor()
	}

	return s
}

// Get returns a copy of the stored session.
// Accessing a session marks it as recently used for LRU purposes.
func (s *Store) Get(_ context.Context, id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	elem, ok := s.items[id]
	if !ok {
		return nil, session.ErrNotFound
	}

	e := elem.Value.(*entry)
	if s.opts.now().After(e.expiresAt) {
		s.removeElement(elem)
		return nil, session.ErrExpired
	}

	s.eviction.MoveToFront(elem)

	out := e.session.Clone()
	out.ExpiresAt = e.expiresAt
	return out, nil
}

// Save stores a copy of the session for ttl.
func (s *Store) Save(_ context.Context, sess *session.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	expiresAt := s.opts.now().Add(ttl)
	stored := sess.Clone()

	if elem, ok := s.items[sess.ID]; ok {
		e := elem.Value.(*entry)
		s.unindex(e.session)
		e.session = stored
		e.expiresAt = expiresAt
		s.index(stored)
		s.eviction.MoveToFront(elem)
		return nil
	}

	if s.opts.maxEntries > 0 && len(s.items) >= s.opts.maxEntries {
		s.evictOldest()
	}

	elem := s.eviction.PushFront(&entry{session: stored, expiresAt: expiresAt})
	s.items[sess.ID] = elem
	s.index(stored)

	return nil
}

// Delete removes a session. Missing sessions are ignored.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if elem, ok := s.items[id]; ok {
		s.removeElement(elem)
	}

	return nil
}

// Touch moves the expiry of a live session.
func (s *Store) Touch(_ context.Context, id string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	elem, ok := s.items[id]
	if !ok {
		return session.ErrNotFound
	}

	e := elem.Value.(*entry)
	if s.opts.now().After(e.expiresAt) {
		s.removeElement(elem)
		return session.ErrNotFound
	}

	e.expiresAt = expiresAt
	s.eviction.MoveToFront(elem)
	return nil
}

// DeleteExpired removes every expired session.
func (s *Store) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	return s.deleteExpired(), nil
}

// DeleteByUserID removes every session bound to userID.
func (s *Store) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	var n int64
	for id := range s.users[userID] {
		if elem, ok := s.items[id]; ok {
			s.removeElement(elem)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close stops the background janitor goroutine and marks the store as closed.
// Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	close(s.done)

	return nil
}

// janitor periodically removes expired entries.
func (s *Store) janitor() {
	ticker := time.NewTicker(s.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.deleteExpired()
			s.mu.Unlock()
		}
	}
}

// deleteExpired removes all expired entries from back to front.
// Caller must hold the mutex.
func (s *Store) deleteExpired() int64 {
	var n int64
	now := s.opts.now()
	for elem := s.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry).expiresAt) {
			s.removeElement(elem)
			n++
		}
		elem = prev
	}
	return n
}

// evictOldest removes the least recently used entry.
// Caller must hold the mutex.
func (s *Store) evictOldest() {
	if elem := s.eviction.Back(); elem != nil {
		s.removeElement(elem)
	}
}

// removeElement removes a specific element and its user index entry.
// Caller must hold the mutex.
func (s *Store) removeElement(elem *list.Element) {
	s.eviction.Remove(elem)
	e := elem.Value.(*entry)
	delete(s.items, e.session.ID)
	s.unindex(e.session)
}

func (s *Store) index(sess *session.Session) {
	if !sess.IsAuthenticated() {
		return
	}
	ids, ok := s.users[*sess.UserID]
	if !ok {
		ids = make(map[string]struct{})
		s.users[*sess.UserID] = ids
	}
	ids[sess.ID] = struct{}{}
}

func (s *Store) unindex(sess *session.Session) {
	if !sess.IsAuthenticated() {
		return
	}
	ids := s.users[*sess.UserID]
	delete(ids, sess.ID)
	if len(ids) == 0 {
		delete(s.users, *sess.UserID)
	}
}

var (
	_ session.Store     = (*Store)(nil)
	_ session.Cleaner   = (*Store)(nil)
	_ session.UserIndex = (*Store)(nil)
)
