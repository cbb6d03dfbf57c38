// Package session holds the per-caller login state machine:
//
//	LoggedOut --Login--> LoggedIn(user, predict)
//	LoggedIn  --Navigate(page)--> LoggedIn(user, page)
//	LoggedIn  --Logout--> LoggedOut
package session

import (
	"errors"

	"noshow-predictor/internal/models"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUnknownPage      = errors.New("unknown page")
)

type Session struct {
	Authenticated bool
	Username      string
	Page          models.Page
}

// New returns a session in the LoggedOut state.
func New() *Session {
	return &Session{}
}

// Login moves the session to LoggedIn on the prediction page. Callers must
// only invoke it after the credentials have been verified.
func (s *Session) Login(username string) {
	s.Authenticated = true
	s.Username = username
	s.Page = models.PagePredict
}

func (s *Session) Logout() {
	*s = Session{}
}

func (s *Session) Navigate(page models.Page) error {
	if !s.Authenticated {
		return ErrNotAuthenticated
	}
	if !page.Valid() {
		return ErrUnknownPage
	}
	s.Page = page
	return nil
}
