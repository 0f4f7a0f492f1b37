package service

import (
	"context"

	"impact-registration/internal/backend"
	"impact-registration/internal/domain"
	"impact-registration/internal/session"
)

// Backend is the part of the registration backend the services talk to.
// *backend.Client implements it.
type Backend interface {
	SubmitRegistration(ctx context.Context, token string, reg domain.Registration) (*backend.StatusResponse, error)
	GetProfile(ctx context.Context, token string) (*backend.ProfileResponse, error)
	GetAdminDashboard(ctx context.Context, token string) ([]domain.User, error)
	UpdateVerification(ctx context.Context, token, registrationID string, verified bool) (*backend.StatusResponse, error)
	CheckToken(ctx context.Context, token string) (bool, error)
	SignIn(ctx context.Context, creds backend.Credentials) (*backend.AuthResponse, error)
	SignUp(ctx context.Context, creds backend.Credentials) (*backend.AuthResponse, error)
	AdminSignIn(ctx context.Context, creds backend.Credentials) (*backend.AuthResponse, error)
}

// Notifier receives the transient messages a view would show as toasts
type Notifier interface {
	Notify(n Notification)
}

type AuthService interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, name, email, password string) error
	AdminSignIn(ctx context.Context, email, password string) error
	CheckToken(ctx context.Context, role session.Role) (bool, error)
	Logout(ctx context.Context, role session.Role) error
}
