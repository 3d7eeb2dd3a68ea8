package client

import (
	"context"
	"sync"

	"go-referral/web/db"
)

// Listener receives the signed-in user, or nil after sign out.
type Listener func(user *db.User)

// Session tracks who is signed in through a Client and tells one listener
// about every change. It is not started until Start is called and holds no
// state outside the value itself.
type Session struct {
	c *Client

	mu       sync.Mutex
	user     *db.User
	listener Listener
}

func NewSession(c *Client) *Session {
	return &Session{c: c}
}

// Start attaches l and immediately calls it with the current user. A second
// Start replaces the previous listener.
func (s *Session) Start(l Listener) {
	s.mu.Lock()
	s.listener = l
	u := s.user
	s.mu.Unlock()
	if l != nil {
		l(u)
	}
}

// Stop detaches the listener; the session keeps its state.
func (s *Session) Stop() {
	s.mu.Lock()
	s.listener = nil
	s.mu.Unlock()
}

func (s *Session) User() *db.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) set(token string, u *db.User) {
	s.mu.Lock()
	s.c.SetToken(token)
	s.user = u
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		l(u)
	}
}

func (s *Session) SignUp(ctx context.Context, req SignUpRequest) (*db.User, error) {
	token, u, err := s.c.SignUp(ctx, req)
	if err != nil {
		return nil, err
	}
	s.set(token, u)
	return u, nil
}

func (s *Session) SignIn(ctx context.Context, email, password string) (*db.User, error) {
	token, u, err := s.c.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.set(token, u)
	return u, nil
}

// Refresh reloads the profile, picking up counter changes.
func (s *Session) Refresh(ctx context.Context) (*db.User, error) {
	u, err := s.c.Me(ctx)
	if err != nil {
		return nil, err
	}
	s.set(s.c.Token(), u)
	return u, nil
}

// SignOut revokes the token server side and clears the session even if that
// call fails.
func (s *Session) SignOut(ctx context.Context) error {
	err := s.c.SignOut(ctx)
	s.set("", nil)
	return err
}
