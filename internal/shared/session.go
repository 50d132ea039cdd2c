package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionManager stores back office sessions in Redis. The cookie carries the
// session id plus an HMAC of it, so ids that were not issued here are ignored
// before Redis is consulted.
type SessionManager struct {
	store      redis.Cmdable
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
	now        func() time.Time
}

// Session is the per-request view of a stored session.
type Session struct {
	ID string

	userID    int64
	role      Role
	csrfToken string
	seenAt    time.Time

	previousID string
	isNew      bool
	dirty      bool
	destroyed  bool
}

type storedSession struct {
	UserID    int64     `json:"userId,omitempty"`
	Role      Role      `json:"role,omitempty"`
	CSRFToken string    `json:"csrfToken,omitempty"`
	SeenAt    time.Time `json:"seenAt"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(store redis.Cmdable, cookieName, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		store:      store,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
		now:        time.Now,
	}
}

// Load resolves the session referenced by the request cookie. Missing, forged
// or expired cookies yield a fresh anonymous session.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		return sm.newSession(), nil
	}
	id, ok := sm.verifyCookie(cookie.Value)
	if !ok {
		return sm.newSession(), nil
	}

	raw, err := sm.store.Get(ctx, sm.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return sm.newSession(), nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        id,
		userID:    stored.UserID,
		role:      stored.Role,
		csrfToken: stored.CSRFToken,
		seenAt:    stored.SeenAt,
	}
	// Sliding expiry: active sessions are rewritten once a quarter of the TTL has passed.
	if sm.now().Sub(stored.SeenAt) > sm.ttl/4 {
		sess.dirty = true
	}
	return sess, nil
}

// Commit persists pending changes and sets or clears the cookie.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.destroyed {
		if err := sm.store.Del(ctx, sm.key(sess.ID), sm.key(sess.previousID)).Err(); err != nil {
			return err
		}
		http.SetCookie(w, sm.cookie("", -1))
		return nil
	}
	if sess.previousID != "" {
		if err := sm.store.Del(ctx, sm.key(sess.previousID)).Err(); err != nil {
			return err
		}
		sess.previousID = ""
	}
	if !sess.dirty {
		return nil
	}

	sess.seenAt = sm.now()
	data, err := json.Marshal(storedSession{
		UserID:    sess.userID,
		Role:      sess.role,
		CSRFToken: sess.csrfToken,
		SeenAt:    sess.seenAt,
	})
	if err != nil {
		return err
	}
	if err := sm.store.Set(ctx, sm.key(sess.ID), data, sm.ttl).Err(); err != nil {
		return err
	}
	sess.dirty = false
	sess.isNew = false
	http.SetCookie(w, sm.cookie(sm.signID(sess.ID), int(sm.ttl/time.Second)))
	return nil
}

// Destroy marks the session for deletion on commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) newSession() *Session {
	return &Session{ID: newSessionID(), isNew: true}
}

func (sm *SessionManager) key(id string) string {
	return "backoffice:session:" + id
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (sm *SessionManager) signID(id string) string {
	return id + "." + sm.mac(id)
}

func (sm *SessionManager) verifyCookie(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(sm.mac(id))) {
		return "", false
	}
	return id, true
}

func (sm *SessionManager) mac(id string) string {
	h := hmac.New(sha256.New, sm.secret)
	_, _ = h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func newSessionID() string {
	return uuid.NewString()
}

// SignIn binds the session to a user. The id is replaced immediately and the
// old record is removed on commit; any CSRF token issued before sign in is dropped.
func (s *Session) SignIn(userID int64, role Role) {
	if !s.isNew && s.previousID == "" {
		s.previousID = s.ID
	}
	s.ID = newSessionID()
	s.userID = userID
	s.role = role
	s.csrfToken = ""
	s.dirty = true
}

// Authenticated reports whether a user is signed in.
func (s *Session) Authenticated() bool {
	return s != nil && s.userID > 0
}

// UserID returns the signed in user, or zero.
func (s *Session) UserID() int64 {
	return s.userID
}

// Role returns the role captured at sign in.
func (s *Session) Role() Role {
	return s.role
}

func (s *Session) setCSRFToken(token string) {
	s.csrfToken = token
	s.dirty = true
}
