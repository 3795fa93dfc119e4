package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type Options struct {
	// TTL drops idle chats; 0 means 24h.
	TTL time.Duration
}

// Store tracks, per chat, the generation pass in flight and the last stored job.
// Starting a new pass cancels the previous one, so only the newest pass reports back.
type Store struct {
	mu    sync.Mutex
	chats *cache.Cache
}

type chatState struct {
	jobID  string
	seq    uint64
	cancel context.CancelFunc
}

// Pass identifies one generation pass started by Begin.
type Pass struct {
	ChatID int64
	seq    uint64
}

func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{chats: cache.New(ttl, ttl/2)}
}

// Begin cancels any running pass for chatID and starts a new one derived from parent.
func (s *Store) Begin(parent context.Context, chatID int64) (context.Context, Pass) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getLocked(chatID)
	if st.cancel != nil {
		st.cancel()
	}
	st.seq++

	ctx, cancel := context.WithCancel(parent)
	st.cancel = cancel
	s.chats.SetDefault(key(chatID), st)

	return ctx, Pass{ChatID: chatID, seq: st.seq}
}

// Finish releases the pass and records jobID when the pass is still the newest one.
// It reports whether the pass was current.
func (s *Store) Finish(p Pass, jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getLocked(p.ChatID)
	if st.seq != p.seq {
		return false
	}
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	if jobID != "" {
		st.jobID = jobID
	}
	s.chats.SetDefault(key(p.ChatID), st)
	return true
}

// Current reports whether p is still the newest pass for its chat.
func (s *Store) Current(p Pass) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.chats.Get(key(p.ChatID))
	return ok && v.(*chatState).seq == p.seq
}

func (s *Store) Running(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.chats.Get(key(chatID))
	return ok && v.(*chatState).cancel != nil
}

func (s *Store) LastJob(chatID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.chats.Get(key(chatID))
	if !ok {
		return "", false
	}
	id := v.(*chatState).jobID
	return id, id != ""
}

func (s *Store) getLocked(chatID int64) *chatState {
	if v, ok := s.chats.Get(key(chatID)); ok {
		return v.(*chatState)
	}
	return &chatState{}
}

func key(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
