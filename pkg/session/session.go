// Package session keeps per-conversation state: bounded message history,
// the authentication state machine that gates debug mode, and the
// per-session rate limiter. Everything lives in process memory; a restart
// loses all of it.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/access"
)

// AuthState tracks where a session is in the debug-mode handshake.
type AuthState string

const (
	StateNone          AuthState = "none"
	StatePendingSecret AuthState = "pending_password"
	StateAuthenticated AuthState = "authenticated"
)

// MaskedContent replaces password exchanges in stored history.
const MaskedContent = "****"

// Message is one turn in a session's history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	SQLQuery  string    `json:"sql_query,omitempty"`
	TableName string    `json:"table_name,omitempty"`
}

// Session holds one conversation's state. All access goes through its
// methods; the mutex guards every field.
type Session struct {
	mu           sync.Mutex
	id           string
	history      []Message
	historyLimit int
	createdAt    time.Time
	lastActivity time.Time

	authState AuthState
	debugMode bool
	userName  string // full name once authenticated
	userKey   string // lowercase username once authenticated
	pending   *access.User
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Append records a turn, evicting the oldest once over the history cap.
func (s *Session) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.history = append(s.history, msg)
	if len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}
	s.lastActivity = time.Now()
}

// History returns a copy of the session's messages in order.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Touch refreshes the idle timer.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Authenticated reports whether the debug handshake completed.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authState == StateAuthenticated
}

// FullName returns the authenticated identity's full name, or "".
func (s *Session) FullName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userName
}

// DebugActive reports whether debug trailers should be appended.
func (s *Session) DebugActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authState == StateAuthenticated && s.debugMode
}

// AuthStatus returns the current state machine position.
func (s *Session) AuthStatus() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authState
}

var _ access.SessionView = (*Session)(nil)

// AuthResult describes a turn consumed by the authentication state
// machine instead of the query pipeline.
type AuthResult struct {
	Reply       string
	MaskContent bool // record the user turn as MaskedContent, not the raw text
}

// AdvanceAuth feeds one user message through the authentication state
// machine. It returns nil when the message is an ordinary question.
//
// "saya <registered name>" moves none -> pending_password. The next
// message is compared against that identity's password: an exact match
// authenticates and enables debug mode, anything else reverts to none.
// A bare password with no prior trigger is just a question.
func (s *Session) AdvanceAuth(ctrl *access.Control, text string) *AuthResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authState == StatePendingSecret {
		pending := s.pending
		s.pending = nil
		if pending != nil && strings.TrimSpace(text) == pending.Password {
			s.authState = StateAuthenticated
			s.debugMode = true
			s.userName = pending.FullName
			s.userKey = strings.ToLower(pending.Username)
			return &AuthResult{
				Reply:       "Password benar. Debug mode aktif untuk " + pending.FullName + " (" + pending.Role + ").",
				MaskContent: true,
			}
		}
		s.authState = StateNone
		return &AuthResult{
			Reply:       "Password salah. Silakan sebutkan nama Anda lagi untuk mencoba ulang.",
			MaskContent: true,
		}
	}

	lowered := strings.ToLower(text)
	for _, username := range ctrl.Usernames() {
		if strings.Contains(lowered, "saya "+username) {
			user, _ := ctrl.LookupUser(username)
			s.authState = StatePendingSecret
			s.pending = &user
			return &AuthResult{
				Reply: "Halo " + user.FullName + ". Silakan masukkan password Anda.",
			}
		}
	}

	return nil
}

// Store maps session ids to sessions. Sessions are created lazily on
// first use and evicted by the idle sweep.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	historyLimit int
	idleTTL      time.Duration
	logger       *zap.Logger
}

// NewStore builds a session store. historyLimit bounds each session's
// message list; idleTTL controls how long an untouched session survives
// the sweep.
func NewStore(historyLimit int, idleTTL time.Duration, logger *zap.Logger) *Store {
	return &Store{
		sessions:     make(map[string]*Session),
		historyLimit: historyLimit,
		idleTTL:      idleTTL,
		logger:       logger.Named("session"),
	}
}

// GetOrCreate returns the session for id, creating it if absent.
func (st *Store) GetOrCreate(id string) *Session {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return sess
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if sess, ok := st.sessions[id]; ok {
		return sess
	}
	now := time.Now()
	sess = &Session{
		id:           id,
		historyLimit: st.historyLimit,
		createdAt:    now,
		lastActivity: now,
		authState:    StateNone,
	}
	st.sessions[id] = sess
	st.logger.Debug("session created", zap.String("session_id", id))
	return sess
}

// Get returns the session for id if it exists.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep evicts sessions idle longer than the TTL and returns how many
// were removed.
func (st *Store) Sweep() int {
	cutoff := time.Now().Add(-st.idleTTL)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, sess := range st.sessions {
		sess.mu.Lock()
		idle := sess.lastActivity.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		st.logger.Info("swept idle sessions", zap.Int("removed", removed), zap.Int("remaining", len(st.sessions)))
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until ctx is done.
func (st *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.Sweep()
			}
		}
	}()
}
