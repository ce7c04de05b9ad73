package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/poslane/poslane/internal/core/domain"
	"github.com/poslane/poslane/internal/port"
)

var (
	ErrEmployeeCodeBlank = errors.New("employee code is blank")
	ErrEmployeeNotFound  = errors.New("employee not found")
)

// SessionService owns the lane's employee session. Every mutation is written
// through to the session repository before it returns, so the persisted state
// never lags the in-memory state. A logged-in session with a blank employee
// code is self-corrected to logged out rather than surfaced.
type SessionService struct {
	mu        sync.Mutex
	repo      port.SessionRepository
	employees port.EmployeeGateway
	log       *logrus.Logger
	current   domain.Session
}

func NewSessionService(repo port.SessionRepository, employees port.EmployeeGateway, log *logrus.Logger) *SessionService {
	return &SessionService{
		repo:      repo,
		employees: employees,
		log:       log,
	}
}

// Load restores the persisted session at startup. Absent or malformed values
// come back as logged out; an invalid stored combination is corrected and the
// correction is written back.
func (s *SessionService) Load(ctx context.Context) error {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !stored.Valid() {
		s.log.WithField("employee_code", stored.EmployeeCode).
			Warn("stored session violates login invariant, forcing logout")
		s.current = domain.Session{}
		return s.persistLocked(ctx)
	}
	s.current = stored
	return nil
}

// Login validates the employee code against the remote API and starts a
// logged-in session.
func (s *SessionService) Login(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrEmployeeCodeBlank
	}

	ok, err := s.employees.Validate(ctx, code)
	if err != nil {
		return fmt.Errorf("validate employee: %w", err)
	}
	if !ok {
		return ErrEmployeeNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = domain.Session{EmployeeCode: code, LoggedIn: true}
	return s.persistLocked(ctx)
}

// Logout ends the session and erases persisted data.
func (s *SessionService) Logout(ctx context.Context) error {
	return s.SetLoggedIn(ctx, false)
}

// SetEmployeeCode replaces the employee code without touching the login flag.
func (s *SessionService) SetEmployeeCode(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.EmployeeCode = strings.TrimSpace(code)
	if !s.current.Valid() {
		s.log.Warn("blank employee code on a logged-in session, forcing logout")
		s.current = domain.Session{}
	}
	return s.persistLocked(ctx)
}

// SetLoggedIn flips the login flag. Turning it off clears the employee code
// as a side effect; turning it on with a blank code is invalid and
// self-corrects to logged out.
func (s *SessionService) SetLoggedIn(ctx context.Context, loggedIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !loggedIn {
		s.current = domain.Session{}
		return s.persistLocked(ctx)
	}

	s.current.LoggedIn = true
	if !s.current.Valid() {
		s.log.Warn("login requested without an employee code, forcing logout")
		s.current = domain.Session{}
	}
	return s.persistLocked(ctx)
}

func (s *SessionService) EmployeeCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.EmployeeCode
}

func (s *SessionService) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.LoggedIn
}

func (s *SessionService) Current() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *SessionService) persistLocked(ctx context.Context) error {
	if !s.current.LoggedIn {
		if err := s.repo.Erase(ctx); err != nil {
			return fmt.Errorf("erase session: %w", err)
		}
		return nil
	}
	if err := s.repo.Save(ctx, s.current); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
