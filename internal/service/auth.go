package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"impact-registration/internal/backend"
	"impact-registration/internal/logger"
	"impact-registration/internal/session"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoToken            = errors.New("backend returned no token")
)

const (
	msgSignUpTitle     = "Welcome to the Carnival!"
	msgSignUpDetail    = "Your ticket has been printed. Step right in!"
	msgSignInTitle     = "Welcome Back!"
	msgSignInDetail    = "Good to see you again."
	msgEntryDenied     = "Entry Denied"
	msgSomethingWrong  = "Something went wrong."
	msgConnectionTitle = "Connection Error"
	msgConnection      = "Could not reach the ticket booth (server)."
)

var credentialMessages = map[string]string{
	"email.required":    "Please show a valid ticket (email).",
	"email.email":       "Please show a valid ticket (email).",
	"password.required": "Secret code must be at least 6 characters.",
	"password.min":      "Secret code must be at least 6 characters.",
	"name.required":     "Name is required to sign up.",
}

type credentialInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type signUpInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type authService struct {
	backend  Backend
	store    session.Store
	notifier Notifier
	validate *validator.Validate
}

func NewAuthService(b Backend, store session.Store, n Notifier) AuthService {
	return &authService{
		backend:  b,
		store:    store,
		notifier: n,
		validate: validator.New(),
	}
}

func (s *authService) SignIn(ctx context.Context, email, password string) error {
	in := credentialInput{Email: strings.TrimSpace(email), Password: password}
	if err := s.check(in); err != nil {
		return err
	}
	return s.login(ctx, session.RoleUser, s.backend.SignIn,
		backend.Credentials{Email: in.Email, Password: in.Password},
		msgSignInTitle, msgSignInDetail)
}

// SignUp creates an account and keeps the returned credential, so the new
// participant can register straight away
func (s *authService) SignUp(ctx context.Context, name, email, password string) error {
	in := signUpInput{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email), Password: password}
	if err := s.check(in); err != nil {
		return err
	}
	return s.login(ctx, session.RoleUser, s.backend.SignUp,
		backend.Credentials{Name: in.Name, Email: in.Email, Password: in.Password},
		msgSignUpTitle, msgSignUpDetail)
}

func (s *authService) AdminSignIn(ctx context.Context, email, password string) error {
	in := credentialInput{Email: strings.TrimSpace(email), Password: password}
	if err := s.check(in); err != nil {
		return err
	}
	return s.login(ctx, session.RoleAdmin, s.backend.AdminSignIn,
		backend.Credentials{Email: in.Email, Password: in.Password},
		msgSignInTitle, msgSignInDetail)
}

// CheckToken asks the backend whether the stored credential for role is
// still good. No stored credential is reported as invalid, not as an error.
func (s *authService) CheckToken(ctx context.Context, role session.Role) (bool, error) {
	token, err := session.New(s.store, role).Read(ctx)
	if errors.Is(err, session.ErrNoCredential) || errors.Is(err, session.ErrCredentialExpired) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.backend.CheckToken(ctx, token)
}

func (s *authService) Logout(ctx context.Context, role session.Role) error {
	if err := session.New(s.store, role).Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	logger.Info("Logged out", "role", string(role))
	return nil
}

type authCall func(context.Context, backend.Credentials) (*backend.AuthResponse, error)

func (s *authService) login(ctx context.Context, role session.Role, call authCall, creds backend.Credentials, title, detail string) error {
	logger.EnterMethod("AuthService.login", "role", string(role), "email", creds.Email)

	resp, err := call(ctx, creds)
	if err != nil {
		var terr *backend.TransportError
		if errors.As(err, &terr) {
			notify(s.notifier, LevelError, msgConnectionTitle, msgConnection)
		} else {
			msg := backend.ServerMessage(err)
			if msg == "" {
				msg = msgSomethingWrong
			}
			notify(s.notifier, LevelError, msgEntryDenied, msg)
		}
		logger.ExitMethodWithError("AuthService.login", err)
		return err
	}
	if resp.Token == "" {
		notify(s.notifier, LevelError, msgEntryDenied, msgSomethingWrong)
		logger.ExitMethodWithError("AuthService.login", ErrNoToken)
		return ErrNoToken
	}

	if err := session.New(s.store, role).Write(ctx, resp.Token); err != nil {
		logger.ExitMethodWithError("AuthService.login", err)
		return fmt.Errorf("failed to store credential: %w", err)
	}

	notify(s.notifier, LevelSuccess, title, detail)
	logger.ExitMethod("AuthService.login", "role", string(role))
	return nil
}

// check runs the credential rules and reports the first broken one
func (s *authService) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	key := strings.ToLower(fe.Field()) + "." + fe.Tag()
	msg, ok := credentialMessages[key]
	if !ok {
		msg = fe.Error()
	}
	notify(s.notifier, LevelError, msgEntryDenied, msg)
	return fmt.Errorf("%w: %s", ErrInvalidCredentials, msg)
}
