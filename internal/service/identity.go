package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"localchat/internal/domain"
	"localchat/internal/logger"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// Identity handles account creation, credential checks, and the current
// session. It is the sole owner of the session lifecycle: the cached user is
// warmed from the store, replaced on register/login, and cleared on logout.
type Identity struct {
	users    domain.UserStore
	sessions domain.SessionStore
	logger   *logger.Logger

	mu      sync.RWMutex
	current *domain.User
}

func NewIdentity(users domain.UserStore, sessions domain.SessionStore, l *logger.Logger) *Identity {
	return &Identity{
		users:    users,
		sessions: sessions,
		logger:   l,
	}
}

// Init warms the session cache from the store. It returns the restored user,
// or nil when no session exists.
func (s *Identity) Init(ctx context.Context) (*domain.User, error) {
	sess, err := s.sessions.Get(ctx)
	if err != nil {
		return nil, wrapStore("restore session", err)
	}
	if sess == nil {
		return nil, nil
	}
	u := sess.User
	s.mu.Lock()
	s.current = &u
	s.mu.Unlock()
	s.logger.Debug("session restored", "username", u.Username)
	return &u, nil
}

// Register creates a new user and signs it in. The uniqueness check and the
// insert are two store calls; the single-writer model keeps that safe, and
// the store's unique username index backstops it.
func (s *Identity) Register(ctx context.Context, username, password string, email *string) (*domain.User, error) {
	if len(username) < minUsernameLen {
		return nil, fmt.Errorf("%w: username must be at least %d characters", domain.ErrValidation, minUsernameLen)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, wrapStore("check username", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("username %q: %w", username, domain.ErrConflict)
	}

	now := time.Now()
	user := &domain.User{
		Username:  username,
		Password:  password, // stored as given; see the flagged credential model
		Email:     email,
		PhotoURL:  avatarURL(username),
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, wrapStore("create user", err)
	}

	if err := s.setSession(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "username", username, "id", user.ID)
	return user, nil
}

// Login checks credentials, updates last-seen, and replaces the session.
func (s *Identity) Login(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, wrapStore("get user", err)
	}
	if user == nil {
		return nil, fmt.Errorf("username %q: %w", username, domain.ErrNotFound)
	}
	if user.Password != password {
		return nil, fmt.Errorf("incorrect password: %w", domain.ErrAuth)
	}

	now := time.Now()
	if err := s.users.UpdateLastSeen(ctx, user.ID, now); err != nil {
		return nil, wrapStore("update last seen", err)
	}
	user.LastSeen = now

	if err := s.setSession(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", "username", username, "id", user.ID)
	return user, nil
}

// Logout deletes the session slot and clears the cache. Logging out while
// logged out is a no-op.
func (s *Identity) Logout(ctx context.Context) error {
	if err := s.sessions.Delete(ctx); err != nil {
		return wrapStore("delete session", err)
	}
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return nil
}

// CurrentUser returns the cached session user, falling back to a store read
// when the cache is cold. The returned snapshot may be stale relative to the
// live user row.
func (s *Identity) CurrentUser(ctx context.Context) (*domain.User, error) {
	s.mu.RLock()
	cached := s.current
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return s.Init(ctx)
}

// IsAuthenticated reports whether a session user is cached.
func (s *Identity) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// GetUser fetches one user by id.
func (s *Identity) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStore("get user", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

// SearchUsers matches the query case-insensitively against usernames. A blank
// query returns no results rather than every user.
func (s *Identity) SearchUsers(ctx context.Context, query string) ([]*domain.User, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, wrapStore("list users", err)
	}
	var res []*domain.User
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Username), query) {
			res = append(res, u)
		}
	}
	return res, nil
}

func (s *Identity) setSession(ctx context.Context, user *domain.User) error {
	sess := &domain.Session{ID: domain.SessionKey, User: *user}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return wrapStore("store session", err)
	}
	s.mu.Lock()
	s.current = user
	s.mu.Unlock()
	return nil
}

func avatarURL(username string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=25D366&color=fff", url.QueryEscape(username))
}
