package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impact-registration/internal/backendtest"
	"impact-registration/internal/domain"
	"impact-registration/internal/pass"
	"impact-registration/internal/service"
	"impact-registration/internal/validation"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// setup points the CLI at a fake backend and a throwaway sqlite session file
func setup(t *testing.T) (*backendtest.Server, string) {
	t.Helper()
	srv := backendtest.New(t)
	dir := t.TempDir()
	t.Setenv("BACKEND_URL", srv.URL())
	t.Setenv("SESSION_DRIVER", "sqlite")
	t.Setenv("SESSION_PATH", filepath.Join(dir, "session.db"))
	t.Setenv("LOG_LEVEL", "error")
	return srv, dir
}

func festctl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRun_Usage(t *testing.T) {
	setup(t)

	_, err := festctl(t)
	assert.True(t, errors.Is(err, flag.ErrHelp))

	_, err = festctl(t, "dance")
	assert.ErrorContains(t, err, `unknown command "dance"`)
}

func TestRun_Events(t *testing.T) {
	setup(t)

	out, err := festctl(t, "events", "-type", "team")
	require.NoError(t, err)
	assert.Contains(t, out, "Futsal (Team)")
	assert.Contains(t, out, "Quizzard (Solo/Team)")
	assert.NotContains(t, out, "Voxbox - Solo Beatbox Battle")

	_, err = festctl(t, "events", "-type", "duo")
	assert.ErrorContains(t, err, `unknown registration type "duo"`)
}

func TestRun_ParticipantFlow(t *testing.T) {
	srv, dir := setup(t)
	shot := filepath.Join(dir, "receipt.png")
	require.NoError(t, os.WriteFile(shot, pngBytes, 0o600))

	out, err := festctl(t, "profile")
	require.Error(t, err)
	assert.Contains(t, out, "Please log in to view your profile.")

	out, err = festctl(t, "signup", "-name", "Jane Doe", "-email", "jane@example.com", "-password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "+ Welcome to the Carnival!")

	out, err = festctl(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "credential is valid")

	out, err = festctl(t, "register", "-type", "team", "-event", "futsal", "-txn", "TXN-1", "-screenshot", shot)
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, out, "teamName:")
	assert.Contains(t, out, "teamMembers:")
	assert.Empty(t, srv.Submissions())

	out, err = festctl(t, "register", "-type", "team", "-event", "futsal", "-txn", "TXN-1", "-screenshot", shot,
		"-team-name", "Goal Diggers", "-leader", "Jane Doe", "-member", "Ann", "-member", "Bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Registration Complete!")
	assert.Contains(t, out, "Your team registration has been received.")

	subs := srv.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, `["Ann","Bob"]`, subs[0].Fields["teamMembers"])
	assert.Equal(t, "receipt.png", subs[0].ScreenshotName)
	assert.Equal(t, "image/png", subs[0].ScreenshotType)

	out, err = festctl(t, "profile")
	require.NoError(t, err)
	assert.Contains(t, out, "jane@example.com")
	assert.Contains(t, out, "Goal Diggers")
	assert.Contains(t, out, "Pending Review")

	out, err = festctl(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")

	out, err = festctl(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "not signed in")
}

func TestRun_AdminFlow(t *testing.T) {
	srv, dir := setup(t)
	srv.AddUser("admin@example.com", "secret1", true)
	srv.AddUser("jane@example.com", "secret1", false)
	rec := srv.AddRegistration("jane@example.com", domain.RegistrationRecord{
		ID:               "reg-1",
		RegistrationType: domain.RegistrationTypeSolo,
		EventName:        "Mind Over Moves - Chess (Solo)",
		FullName:         "Jane Doe",
		TransactionUID:   "TXN-42",
		CreatedAt:        time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	})

	_, err := festctl(t, "dashboard")
	require.Error(t, err)

	out, err := festctl(t, "admin-signin", "-email", "jane@example.com", "-password", "secret1")
	require.Error(t, err)
	assert.Contains(t, out, "! Entry Denied")

	_, err = festctl(t, "admin-signin", "-email", "admin@example.com", "-password", "secret1")
	require.NoError(t, err)

	out, err = festctl(t, "dashboard", "-q", "txn-42")
	require.NoError(t, err)
	assert.Contains(t, out, "reg-1")
	assert.Contains(t, out, "1 of 1 registrations")

	out, err = festctl(t, "dashboard", "-q", "nobody")
	require.NoError(t, err)
	assert.Contains(t, out, "0 of 1 registrations")

	out, err = festctl(t, "verify", "-id", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Registration verified successfully")
	updated, ok := srv.Registration(rec.ID)
	require.True(t, ok)
	assert.True(t, updated.Verified)

	_, err = festctl(t, "verify", "-id", "missing")
	assert.ErrorContains(t, err, `registration "missing" not found`)

	_, err = festctl(t, "signin", "-email", "jane@example.com", "-password", "secret1")
	require.NoError(t, err)

	out, err = festctl(t, "profile")
	require.NoError(t, err)
	assert.Contains(t, out, "Verified")

	passFile := filepath.Join(dir, "pass.png")
	out, err = festctl(t, "pass", "-id", rec.ID, "-out", passFile)
	require.NoError(t, err)
	assert.Contains(t, out, passFile)
	data, err := os.ReadFile(passFile)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	_, err = festctl(t, "verify", "-id", rec.ID)
	require.NoError(t, err)
	_, err = festctl(t, "pass", "-id", rec.ID, "-out", passFile)
	assert.True(t, errors.Is(err, pass.ErrNotVerified))
}

func TestRun_Watch(t *testing.T) {
	srv, _ := setup(t)
	srv.AddUser("jane@example.com", "secret1", false)

	out, err := festctl(t, "watch", "-once")
	assert.True(t, errors.Is(err, service.ErrAccessDenied))
	assert.Contains(t, out, "! Watch paused: Please log in to view your profile.")

	_, err = festctl(t, "signin", "-email", "jane@example.com", "-password", "secret1")
	require.NoError(t, err)

	out, err = festctl(t, "watch", "-once")
	require.NoError(t, err)
	assert.Contains(t, out, "* Watching registrations: 0 pending review, 0 verified")

	_, err = festctl(t, "watch", "-schedule", "whenever")
	assert.ErrorContains(t, err, `invalid schedule "whenever"`)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(ctx, []string{"watch", "-schedule", "@every 1h"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Watching registrations")
}
