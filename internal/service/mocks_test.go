package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"impact-registration/internal/backend"
	"impact-registration/internal/domain"
)

// MockBackend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) SubmitRegistration(ctx context.Context, token string, reg domain.Registration) (*backend.StatusResponse, error) {
	args := m.Called(ctx, token, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.StatusResponse), args.Error(1)
}
func (m *MockBackend) GetProfile(ctx context.Context, token string) (*backend.ProfileResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.ProfileResponse), args.Error(1)
}
func (m *MockBackend) GetAdminDashboard(ctx context.Context, token string) ([]domain.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}
func (m *MockBackend) UpdateVerification(ctx context.Context, token, registrationID string, verified bool) (*backend.StatusResponse, error) {
	args := m.Called(ctx, token, registrationID, verified)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.StatusResponse), args.Error(1)
}
func (m *MockBackend) CheckToken(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}
func (m *MockBackend) SignIn(ctx context.Context, creds backend.Credentials) (*backend.AuthResponse, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.AuthResponse), args.Error(1)
}
func (m *MockBackend) SignUp(ctx context.Context, creds backend.Credentials) (*backend.AuthResponse, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.AuthResponse), args.Error(1)
}
func (m *MockBackend) AdminSignIn(ctx context.Context, creds backend.Credentials) (*backend.AuthResponse, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.AuthResponse), args.Error(1)
}

// MockStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Read(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
func (m *MockStore) Write(ctx context.Context, key, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}
func (m *MockStore) Clear(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
