package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store keeps the live sessions keyed by user. It is safe for concurrent
// use; the sessions themselves are not.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	now      func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session), now: time.Now}
}

// Get returns the user's session, or nil.
func (s *Store) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// Start replaces the user's session with a fresh one. The old session, if
// any, is closed.
func (s *Store) Start(userID int64) *Session {
	sess := New(userID, s.now())

	s.mu.Lock()
	old := s.sessions[userID]
	s.sessions[userID] = sess
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return sess
}

// Stop closes and removes the user's session. It reports whether one
// existed.
func (s *Store) Stop(userID int64) bool {
	s.mu.Lock()
	old, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if ok {
		old.Close()
	}
	return ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Touch marks the user's session as active now.
func (s *Store) Touch(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.LastActive = s.now()
	}
}

// Sweep closes and removes sessions idle for longer than maxIdle and
// returns how many were removed.
func (s *Store) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	var stale []*Session
	for id, sess := range s.sessions {
		if sess.LastActive.Before(cutoff) {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Close()
	}
	return len(stale)
}

// Close closes and removes every session.
func (s *Store) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[int64]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.Close()
	}
}

// Janitor periodically sweeps idle sessions from a Store.
type Janitor struct {
	store    *Store
	interval time.Duration
	maxIdle  time.Duration
	logger   *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// NewJanitor creates a Janitor. A nil logger means slog.Default().
func NewJanitor(store *Store, interval, maxIdle time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		store:    store,
		interval: interval,
		maxIdle:  maxIdle,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop in the background until ctx ends or Stop is
// called.
func (j *Janitor) Start(ctx context.Context) {
	go func() {
		defer close(j.doneCh)
		t := time.NewTicker(j.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-j.stopCh:
				return
			case <-t.C:
				if n := j.store.Sweep(j.maxIdle); n > 0 {
					j.logger.Info("idle sessions removed", "count", n, "remaining", j.store.Len())
				}
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit. Stop must only be
// called after Start.
func (j *Janitor) Stop() {
	j.once.Do(func() { close(j.stopCh) })
	<-j.doneCh
}
