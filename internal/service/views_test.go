package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"impact-registration/internal/backend"
	"impact-registration/internal/backendtest"
	"impact-registration/internal/domain"
	"impact-registration/internal/security"
	"impact-registration/internal/service"
	"impact-registration/internal/session"
)

const adminToken = "opaque-admin-token"

func at(day int) time.Time {
	return time.Date(2026, 2, day, 12, 0, 0, 0, time.UTC)
}

func sampleUsers() []domain.User {
	return []domain.User{
		{
			ID:    "u1",
			Email: "jane@example.com",
			Registrations: []domain.RegistrationRecord{
				{ID: "r1", RegistrationType: domain.RegistrationTypeSolo, EventName: "Westwood - Western Solo Singing", TransactionUID: "TXN123", FullName: "Jane Doe", CreatedAt: at(1)},
				{ID: "r2", RegistrationType: domain.RegistrationTypeTeam, EventName: "Futsal (Team)", TransactionUID: "UPI-777", TeamName: "Goal Diggers", TeamLeader: "Jane", TeamMembers: []string{"Dev"}, CreatedAt: at(3)},
			},
		},
		{ID: "u2", Email: "nobody@example.com"},
		{
			ID:    "u3",
			Email: "legacy@example.com",
			Registrations: []domain.RegistrationRecord{
				{ID: "r3", RegistrationType: domain.RegistrationTypeSolo, EventName: "Quizzard (Solo/Team)", TransactionUID: "OLD-1", TeamName: "Quiz Kids", CreatedAt: at(2), Verified: true},
				{ID: "r4", RegistrationType: domain.RegistrationTypeSolo, EventName: "Quizzard (Solo/Team)", TransactionUID: "OLD-2", CreatedAt: at(2)},
				{ID: "r5", RegistrationType: domain.RegistrationTypeTeam, EventName: "BGMI - Team", TransactionUID: "OLD-3", CreatedAt: at(2)},
			},
		},
	}
}

func TestFlatten(t *testing.T) {
	users := sampleUsers()
	rows := service.Flatten(users)
	require.Len(t, rows, 5)

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.RegistrationID
	}
	// newest first, equal timestamps keep server order
	assert.Equal(t, []string{"r2", "r3", "r4", "r5", "r1"}, ids)

	byID := make(map[string]domain.TableRow)
	for _, r := range rows {
		byID[r.RegistrationID] = r
	}
	assert.Equal(t, "Jane Doe", byID["r1"].DisplayName)
	assert.Equal(t, "Goal Diggers", byID["r2"].DisplayName)
	assert.Equal(t, "Quiz Kids", byID["r3"].DisplayName)
	assert.Equal(t, "Unnamed User", byID["r4"].DisplayName)
	assert.Equal(t, "Unnamed Team", byID["r5"].DisplayName)

	assert.Equal(t, "u1", byID["r2"].UserID)
	assert.Equal(t, "jane@example.com", byID["r2"].UserEmail)
	assert.Equal(t, "Jane", byID["r2"].TeamLeader)
	assert.Equal(t, []string{"Dev"}, byID["r2"].TeamMembers)
	assert.True(t, byID["r3"].Verified)

	assert.Equal(t, sampleUsers(), users)
	assert.Empty(t, service.Flatten(nil))
}

func TestFilter(t *testing.T) {
	rows := service.Flatten(sampleUsers())

	t.Run("PendingIsNotAStatusFilter", func(t *testing.T) {
		assert.Empty(t, service.Filter(rows, "pending"))

		pendingRows := append(append([]domain.TableRow(nil), rows...), domain.TableRow{RegistrationID: "r9", UserEmail: "pending.payments@example.com"})
		got := service.Filter(pendingRows, "pending")
		require.Len(t, got, 1)
		assert.Equal(t, "r9", got[0].RegistrationID)
	})

	t.Run("CaseInsensitiveAcrossFields", func(t *testing.T) {
		assert.Len(t, service.Filter(rows, "JANE@"), 2)
		assert.Len(t, service.Filter(rows, "upi-777"), 1)
		assert.Len(t, service.Filter(rows, "quizzard"), 2)
		assert.Len(t, service.Filter(rows, "unnamed"), 2)
	})

	t.Run("UnionOfMatches", func(t *testing.T) {
		// event names match r2..r4, r5 matches on both event and display name
		got := service.Filter(rows, "team")
		var ids []string
		for _, r := range got {
			ids = append(ids, r.RegistrationID)
		}
		assert.Equal(t, []string{"r2", "r3", "r4", "r5"}, ids)
		assert.Len(t, service.Filter(rows, "doe"), 1)
	})

	t.Run("EmptyQueryKeepsAll", func(t *testing.T) {
		assert.Equal(t, rows, service.Filter(rows, ""))
	})
}

func TestDashboardView_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("NoCredential", func(t *testing.T) {
		mockBackend := new(MockBackend)
		_, sess := loggedIn(t, session.RoleAdmin, "")
		view := service.NewDashboardView(mockBackend, sess, nil)

		err := view.Load(ctx)
		assert.True(t, errors.Is(err, service.ErrAccessDenied))
		assert.Equal(t, service.ViewAccessDenied, view.State())
		mockBackend.AssertNotCalled(t, "GetAdminDashboard", mock.Anything, mock.Anything)
	})

	t.Run("UnauthorizedClearsCredential", func(t *testing.T) {
		mockBackend := new(MockBackend)
		store, sess := loggedIn(t, session.RoleAdmin, adminToken)
		notes := &service.Recorder{}
		view := service.NewDashboardView(mockBackend, sess, notes)
		mockBackend.On("GetAdminDashboard", ctx, adminToken).
			Return(nil, &backend.ServerError{StatusCode: http.StatusUnauthorized}).Once()

		err := view.Load(ctx)
		assert.True(t, errors.Is(err, service.ErrAccessDenied))
		assert.Equal(t, service.ViewAccessDenied, view.State())
		_, err = store.Read(ctx, "admin_token")
		assert.True(t, errors.Is(err, session.ErrNoCredential))
		assert.Equal(t, "Failed to load users.", notes.Last().Title)
		mockBackend.AssertExpectations(t)
	})

	t.Run("OtherFailureIsRetryable", func(t *testing.T) {
		mockBackend := new(MockBackend)
		store, sess := loggedIn(t, session.RoleAdmin, adminToken)
		view := service.NewDashboardView(mockBackend, sess, nil)
		mockBackend.On("GetAdminDashboard", ctx, adminToken).
			Return(nil, &backend.ServerError{StatusCode: http.StatusInternalServerError}).Once()
		mockBackend.On("GetAdminDashboard", ctx, adminToken).Return(sampleUsers(), nil).Once()

		require.Error(t, view.Load(ctx))
		assert.Equal(t, service.ViewError, view.State())
		token, err := store.Read(ctx, "admin_token")
		require.NoError(t, err)
		assert.Equal(t, adminToken, token)

		require.NoError(t, view.Load(ctx))
		assert.Equal(t, service.ViewReady, view.State())
		assert.Len(t, view.Rows(), 5)
		assert.Len(t, view.Search("legacy"), 3)
	})
}

func TestDashboardView_ToggleVerification(t *testing.T) {
	ctx := context.Background()

	load := func(t *testing.T) (*MockBackend, *service.DashboardView, *service.Recorder) {
		mockBackend := new(MockBackend)
		_, sess := loggedIn(t, session.RoleAdmin, adminToken)
		notes := &service.Recorder{}
		view := service.NewDashboardView(mockBackend, sess, notes)
		mockBackend.On("GetAdminDashboard", ctx, adminToken).Return(sampleUsers(), nil).Once()
		require.NoError(t, view.Load(ctx))
		return mockBackend, view, notes
	}

	verified := func(view *service.DashboardView) map[string]bool {
		out := make(map[string]bool)
		for _, r := range view.Rows() {
			out[r.RegistrationID] = r.Verified
		}
		return out
	}

	t.Run("Success", func(t *testing.T) {
		mockBackend, view, notes := load(t)
		before := verified(view)
		mockBackend.On("UpdateVerification", ctx, adminToken, "r1", true).
			Return(&backend.StatusResponse{Success: true}, nil).Once()

		require.NoError(t, view.ToggleVerification(ctx, "r1", false))

		after := verified(view)
		assert.True(t, after["r1"])
		delete(before, "r1")
		delete(after, "r1")
		assert.Equal(t, before, after)
		assert.True(t, view.Users()[0].Registrations[0].Verified)
		assert.Equal(t, "Registration verified successfully", notes.Last().Title)
		mockBackend.AssertExpectations(t)
	})

	t.Run("UnVerify", func(t *testing.T) {
		mockBackend, view, notes := load(t)
		mockBackend.On("UpdateVerification", ctx, adminToken, "r3", false).
			Return(&backend.StatusResponse{Success: true}, nil).Once()

		require.NoError(t, view.ToggleVerification(ctx, "r3", true))
		assert.False(t, verified(view)["r3"])
		assert.Equal(t, "Registration un-verified successfully", notes.Last().Title)
	})

	failures := []struct {
		name    string
		err     error
		message string
	}{
		{"SuccessFalseWithMessage", &backend.ServerError{StatusCode: http.StatusOK, Message: "Registration locked"}, "Registration locked"},
		{"SuccessFalseBare", &backend.ServerError{StatusCode: http.StatusOK}, "Update failed"},
		{"ServerDown", &backend.ServerError{StatusCode: http.StatusBadGateway, Message: "bad gateway"}, "Failed to update status"},
		{"Transport", &backend.TransportError{Op: "POST", Err: errors.New("reset")}, "Failed to update status"},
	}
	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			mockBackend, view, notes := load(t)
			before := view.Rows()
			mockBackend.On("UpdateVerification", ctx, adminToken, "r1", true).Return(nil, tc.err).Once()

			require.Error(t, view.ToggleVerification(ctx, "r1", false))
			assert.Equal(t, before, view.Rows())
			assert.False(t, view.Users()[0].Registrations[0].Verified)
			assert.Equal(t, service.Notification{Level: service.LevelError, Title: tc.message}, notes.Last())
		})
	}
}

func TestDashboardView_Logout(t *testing.T) {
	ctx := context.Background()
	store, sess := loggedIn(t, session.RoleAdmin, adminToken)
	require.NoError(t, store.Write(ctx, "token", userToken))
	notes := &service.Recorder{}
	view := service.NewDashboardView(new(MockBackend), sess, notes)

	require.NoError(t, view.Logout(ctx))
	_, err := store.Read(ctx, "admin_token")
	assert.True(t, errors.Is(err, session.ErrNoCredential))
	token, err := store.Read(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, userToken, token)
	assert.Equal(t, "Logged out successfully", notes.Last().Title)
	assert.Equal(t, service.ViewAccessDenied, view.State())
}

func TestDashboardView_AgainstBackend(t *testing.T) {
	ctx := context.Background()
	srv := backendtest.New(t)
	srv.AddUser("admin@example.com", "secret1", true)
	srv.AddUser("jane@example.com", "secret1", false)
	rec := srv.AddRegistration("jane@example.com", domain.RegistrationRecord{
		RegistrationType: domain.RegistrationTypeSolo,
		EventName:        "Westwood - Western Solo Singing",
		TransactionUID:   "TXN123",
		FullName:         "Jane Doe",
		CreatedAt:        at(4),
	})
	_, sess := loggedIn(t, session.RoleAdmin, srv.Token("admin@example.com"))
	client := backend.NewClient(srv.URL(), srv.Endpoints(), srv.Client())
	view := service.NewDashboardView(client, sess, nil)

	require.NoError(t, view.Load(ctx))
	rows := view.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Jane Doe", rows[0].DisplayName)

	require.NoError(t, view.ToggleVerification(ctx, rec.ID, rows[0].Verified))
	stored, ok := srv.Registration(rec.ID)
	require.True(t, ok)
	assert.True(t, stored.Verified)
	assert.True(t, view.Rows()[0].Verified)
	assert.Len(t, srv.CallsTo(srv.Endpoints().AdminDashboard), 1)
}

func TestProfileView_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("NoCredential", func(t *testing.T) {
		mockBackend := new(MockBackend)
		_, sess := loggedIn(t, session.RoleUser, "")
		view := service.NewProfileView(mockBackend, sess)

		assert.True(t, errors.Is(view.Load(ctx), service.ErrAccessDenied))
		assert.Equal(t, service.ViewAccessDenied, view.State())
		assert.Equal(t, "Please log in to view your profile.", view.Message())
		mockBackend.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		expired, err := security.NewTokenManager("secret", -time.Minute).GenerateAccessToken("u1", "jane@example.com", nil)
		require.NoError(t, err)
		mockBackend := new(MockBackend)
		_, sess := loggedIn(t, session.RoleUser, expired)
		view := service.NewProfileView(mockBackend, sess)

		assert.True(t, errors.Is(view.Load(ctx), service.ErrAccessDenied))
		assert.Equal(t, "Session expired. Please log in again.", view.Message())
		mockBackend.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
	})

	t.Run("Forbidden", func(t *testing.T) {
		mockBackend := new(MockBackend)
		store, sess := loggedIn(t, session.RoleUser, userToken)
		view := service.NewProfileView(mockBackend, sess)
		mockBackend.On("GetProfile", ctx, userToken).
			Return(nil, &backend.ServerError{StatusCode: http.StatusForbidden}).Once()

		assert.True(t, errors.Is(view.Load(ctx), service.ErrAccessDenied))
		assert.Equal(t, "Session expired. Please log in again.", view.Message())
		_, err := store.Read(ctx, "token")
		assert.True(t, errors.Is(err, session.ErrNoCredential))
	})

	t.Run("ReportedFailure", func(t *testing.T) {
		mockBackend := new(MockBackend)
		_, sess := loggedIn(t, session.RoleUser, userToken)
		view := service.NewProfileView(mockBackend, sess)
		mockBackend.On("GetProfile", ctx, userToken).
			Return(nil, &backend.ServerError{StatusCode: http.StatusOK}).Once()

		require.Error(t, view.Load(ctx))
		assert.Equal(t, service.ViewError, view.State())
		assert.Equal(t, "Failed to load profile.", view.Message())
	})

	t.Run("NetworkFailure", func(t *testing.T) {
		mockBackend := new(MockBackend)
		_, sess := loggedIn(t, session.RoleUser, userToken)
		view := service.NewProfileView(mockBackend, sess)
		mockBackend.On("GetProfile", ctx, userToken).
			Return(nil, &backend.TransportError{Op: "GET /profile", Err: errors.New("timeout")}).Once()

		require.Error(t, view.Load(ctx))
		assert.Equal(t, service.ViewError, view.State())
		assert.Equal(t, "Could not load profile. Please try again later.", view.Message())
	})

	t.Run("SortsNewestFirst", func(t *testing.T) {
		mockBackend := new(MockBackend)
		_, sess := loggedIn(t, session.RoleUser, userToken)
		view := service.NewProfileView(mockBackend, sess)
		regs := []domain.RegistrationRecord{
			{ID: "a", CreatedAt: at(1)},
			{ID: "b", CreatedAt: at(5)},
			{ID: "c", CreatedAt: at(3)},
			{ID: "d", CreatedAt: at(5)},
		}
		mockBackend.On("GetProfile", ctx, userToken).Return(&backend.ProfileResponse{
			StatusResponse: backend.StatusResponse{Success: true},
			User:           domain.User{ID: "u1", Email: "jane@example.com"},
			Registrations:  regs,
		}, nil).Once()

		require.NoError(t, view.Load(ctx))
		assert.Equal(t, service.ViewReady, view.State())
		assert.Equal(t, "jane@example.com", view.User().Email)
		var ids []string
		for _, r := range view.Registrations() {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []string{"b", "d", "c", "a"}, ids)
		assert.Equal(t, "a", regs[0].ID)
	})
}
