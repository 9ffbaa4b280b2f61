package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"strings"

	"campusfeed/internal/models"
	"campusfeed/internal/state"

	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and the active session.
type AuthService struct {
	state      *state.State
	bcryptCost int
	onLogin    func(username string)
}

// NewAuthService creates a new AuthService.
func NewAuthService(st *state.State, bcryptCost int) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		state:      st,
		bcryptCost: bcryptCost,
	}
}

// OnLogin registers a callback run after every successful login, outside
// the state lock, so the front end can refresh its views.
func (s *AuthService) OnLogin(fn func(username string)) {
	s.onLogin = fn
}

// RegisterUser creates an account with zeroed stats, hashing the password.
func (s *AuthService) RegisterUser(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, models.NewInvalidInputError("please enter username & password")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user, err := models.NewUser(username, string(hashedPassword))
	if err != nil {
		return nil, err
	}

	s.state.Lock()
	defer s.state.Unlock()

	if _, exists := s.state.Users[username]; exists {
		return nil, models.NewDuplicateUserError(username)
	}
	s.state.Users[username] = user
	if err := s.state.Commit(ctx, state.Users); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	log.Printf("Registered user %s", username)
	registered := *user
	return &registered, nil
}

// LoginUser checks the credentials and makes username the active session.
// Unknown users and wrong passwords produce the same error.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.NewInvalidInputError("enter username & password")
	}

	if err := s.login(ctx, username, password); err != nil {
		return err
	}
	if s.onLogin != nil {
		s.onLogin(username)
	}
	return nil
}

func (s *AuthService) login(ctx context.Context, username, password string) error {
	s.state.Lock()
	defer s.state.Unlock()

	user, ok := s.state.Users[username]
	if !ok {
		return models.NewInvalidCredentialsError()
	}

	if _, costErr := bcrypt.Cost([]byte(user.Password)); costErr != nil {
		// stored before passwords were hashed
		if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
			return models.NewInvalidCredentialsError()
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = string(hashedPassword)
		if err := s.state.Commit(ctx, state.Users); err != nil {
			return fmt.Errorf("failed to upgrade password hash: %w", err)
		}
		log.Printf("Upgraded legacy password for %s", username)
	} else if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return models.NewInvalidCredentialsError()
	}

	return s.state.SetSessionLocked(ctx, username)
}

// Logout clears the session once confirm agrees. A nil confirm counts as
// agreement. confirm runs without the state lock held. Logout reports
// whether the session was cleared.
func (s *AuthService) Logout(ctx context.Context, confirm func() bool) (bool, error) {
	s.state.Lock()
	current := s.state.Session
	s.state.Unlock()

	if current == "" {
		return false, models.NewUnauthenticatedError("no current user")
	}
	if confirm != nil && !confirm() {
		return false, nil
	}

	s.state.Lock()
	defer s.state.Unlock()

	if s.state.Session != current {
		return false, models.NewUnauthenticatedError(fmt.Sprintf("%s is no longer signed in", current))
	}
	if err := s.state.SetSessionLocked(ctx, ""); err != nil {
		return false, err
	}
	return true, nil
}

// CurrentUser returns the active username or "".
func (s *AuthService) CurrentUser() string {
	s.state.Lock()
	defer s.state.Unlock()
	return s.state.Session
}

// RequireSession returns the active username or UNAUTHENTICATED.
func (s *AuthService) RequireSession() (string, error) {
	s.state.Lock()
	defer s.state.Unlock()
	return requireSession(s.state, "continue")
}

// requireSession returns the active username or UNAUTHENTICATED. The
// caller holds the state lock.
func requireSession(st *state.State, action string) (string, error) {
	if st.Session == "" {
		return "", models.NewUnauthenticatedError("please login to " + action)
	}
	return st.Session, nil
}
