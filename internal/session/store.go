// Package session holds the client's authenticated identity, derived from a
// persisted credential token.
package session

import (
	"log"
	"sync"
)

// Store is the single shared session cell. All mutations go through it;
// views read it synchronously and may subscribe to change notifications.
type Store struct {
	storage Storage

	mu      sync.Mutex
	current Session
	subs    []func(Session)
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Restore hydrates the session from the persisted token. It never fails:
// a missing token means anonymous, and a token that will not decode is
// discarded with the cause logged.
func (s *Store) Restore() {
	token, err := s.storage.ReadToken()
	if err != nil {
		log.Printf("session: read token: %v", err)
		s.set(Session{})
		return
	}
	if token == "" {
		s.set(Session{})
		return
	}
	sess, err := DecodeToken(token)
	if err != nil {
		log.Printf("session: discarding persisted token: %v", err)
		if err := s.storage.ClearToken(); err != nil {
			log.Printf("session: clear token: %v", err)
		}
		s.set(Session{})
		return
	}
	s.set(sess)
}

// Login persists the token and adopts its identity. Unlike Restore, a token
// that will not decode is reported to the caller, since the user has to be
// told the login failed.
func (s *Store) Login(token string) error {
	sess, err := DecodeToken(token)
	if err != nil {
		if clearErr := s.storage.ClearToken(); clearErr != nil {
			log.Printf("session: clear token: %v", clearErr)
		}
		return err
	}
	if err := s.storage.WriteToken(token); err != nil {
		log.Printf("session: persist token: %v", err)
	}
	s.set(sess)
	return nil
}

// Logout clears the persisted token and resets to anonymous. Navigation is
// the caller's business.
func (s *Store) Logout() {
	if err := s.storage.ClearToken(); err != nil {
		log.Printf("session: clear token: %v", err)
	}
	s.set(Session{})
}

// Current returns the session as of the last mutation.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	token, err := s.storage.ReadToken()
	if err != nil {
		log.Printf("session: read token: %v", err)
		return ""
	}
	return token
}

// Subscribe registers fn to run after every session mutation.
func (s *Store) Subscribe(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) set(sess Session) {
	s.mu.Lock()
	s.current = sess
	subs := make([]func(Session), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(sess)
	}
}
