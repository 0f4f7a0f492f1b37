package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"impact-registration/internal/backend"
	"impact-registration/internal/domain"
	"impact-registration/internal/logger"
	"impact-registration/internal/session"
)

type ViewState string

const (
	ViewIdle         ViewState = "idle"
	ViewReady        ViewState = "ready"
	ViewAccessDenied ViewState = "access-denied"
	ViewError        ViewState = "error"
)

var ErrAccessDenied = errors.New("access denied")

const (
	msgProfileLogin   = "Please log in to view your profile."
	msgProfileFailed  = "Failed to load profile."
	msgProfileRetry   = "Could not load profile. Please try again later."
	msgAdminLogin     = "Please log in as an admin to view the dashboard."
	msgUsersFailed    = "Failed to load users."
	msgUpdateFailed   = "Update failed"
	msgUpdateError    = "Failed to update status"
	msgLoggedOut      = "Logged out successfully"
	msgVerifiedFormat = "Registration %s successfully"
)

// ProfileView loads the signed-in participant's own registrations
type ProfileView struct {
	backend Backend
	session *session.Session

	mu      sync.Mutex
	state   ViewState
	message string
	user    domain.User
	records []domain.RegistrationRecord
}

func NewProfileView(b Backend, sess *session.Session) *ProfileView {
	return &ProfileView{backend: b, session: sess, state: ViewIdle}
}

// Load fetches the profile. Access problems leave the view in
// ViewAccessDenied and return an error wrapping ErrAccessDenied; any other
// failure leaves it in ViewError so the caller can retry.
func (v *ProfileView) Load(ctx context.Context) error {
	logger.EnterMethod("ProfileView.Load")

	token, err := v.session.Read(ctx)
	if err != nil {
		msg := msgProfileLogin
		if errors.Is(err, session.ErrCredentialExpired) {
			msg = msgSessionExpired
		}
		if !errors.Is(err, session.ErrNoCredential) && !errors.Is(err, session.ErrCredentialExpired) {
			v.set(ViewError, msgProfileRetry)
			logger.ExitMethodWithError("ProfileView.Load", err)
			return fmt.Errorf("failed to read credential: %w", err)
		}
		v.set(ViewAccessDenied, msg)
		logger.ExitMethodWithError("ProfileView.Load", err)
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	resp, err := v.backend.GetProfile(ctx, token)
	if err != nil {
		logger.ExitMethodWithError("ProfileView.Load", err)
		if errors.Is(err, backend.ErrUnauthorized) {
			if cerr := v.session.Clear(ctx); cerr != nil {
				logger.Warn("Failed to clear rejected credential", "error", cerr)
			}
			v.set(ViewAccessDenied, msgSessionExpired)
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
		if reportedFailure(err) {
			msg := backend.ServerMessage(err)
			if msg == "" {
				msg = msgProfileFailed
			}
			v.set(ViewError, msg)
			return err
		}
		v.set(ViewError, msgProfileRetry)
		return err
	}

	records := append([]domain.RegistrationRecord(nil), resp.Registrations...)
	SortRecords(records)

	v.mu.Lock()
	v.state = ViewReady
	v.message = ""
	v.user = resp.User
	v.records = records
	v.mu.Unlock()

	logger.ExitMethod("ProfileView.Load", "registrations", len(records))
	return nil
}

func (v *ProfileView) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Message is the text shown for the access-denied and error states
func (v *ProfileView) Message() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.message
}

func (v *ProfileView) User() domain.User {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.user
}

// Registrations returns the records newest first
func (v *ProfileView) Registrations() []domain.RegistrationRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.RegistrationRecord(nil), v.records...)
}

func (v *ProfileView) set(state ViewState, msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = state
	v.message = msg
}

// SortRecords orders records by createdAt, newest first. Equal timestamps
// keep the order the server returned.
func SortRecords(records []domain.RegistrationRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// DashboardView is the admin table of every registration
type DashboardView struct {
	backend  Backend
	session  *session.Session
	notifier Notifier

	mu      sync.Mutex
	state   ViewState
	message string
	users   []domain.User
	rows    []domain.TableRow
}

func NewDashboardView(b Backend, sess *session.Session, n Notifier) *DashboardView {
	return &DashboardView{backend: b, session: sess, notifier: n, state: ViewIdle}
}

func (v *DashboardView) Load(ctx context.Context) error {
	logger.EnterMethod("DashboardView.Load")

	token, err := v.session.Read(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrNoCredential) && !errors.Is(err, session.ErrCredentialExpired) {
			v.set(ViewError, msgUsersFailed)
			notify(v.notifier, LevelError, msgUsersFailed, "")
			logger.ExitMethodWithError("DashboardView.Load", err)
			return fmt.Errorf("failed to read credential: %w", err)
		}
		v.set(ViewAccessDenied, msgAdminLogin)
		logger.ExitMethodWithError("DashboardView.Load", err)
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	users, err := v.backend.GetAdminDashboard(ctx, token)
	if err != nil {
		logger.ExitMethodWithError("DashboardView.Load", err)
		notify(v.notifier, LevelError, msgUsersFailed, "")
		if errors.Is(err, backend.ErrUnauthorized) {
			if cerr := v.session.Clear(ctx); cerr != nil {
				logger.Warn("Failed to clear rejected credential", "error", cerr)
			}
			v.set(ViewAccessDenied, msgAdminLogin)
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
		v.set(ViewError, msgUsersFailed)
		return err
	}

	rows := Flatten(users)
	v.mu.Lock()
	v.state = ViewReady
	v.message = ""
	v.users = users
	v.rows = rows
	v.mu.Unlock()

	logger.ExitMethod("DashboardView.Load", "users", len(users), "rows", len(rows))
	return nil
}

func (v *DashboardView) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *DashboardView) Message() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.message
}

// Rows returns every row, newest registration first
func (v *DashboardView) Rows() []domain.TableRow {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.TableRow(nil), v.rows...)
}

// Users returns the backing user records as last loaded or updated
func (v *DashboardView) Users() []domain.User {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]domain.User, len(v.users))
	for i, u := range v.users {
		u.Registrations = append([]domain.RegistrationRecord(nil), u.Registrations...)
		out[i] = u
	}
	return out
}

// Search is Filter over the current rows
func (v *DashboardView) Search(query string) []domain.TableRow {
	return Filter(v.Rows(), query)
}

// ToggleVerification asks the backend to flip the verified flag of one
// registration. Local state changes only after the backend confirms.
func (v *DashboardView) ToggleVerification(ctx context.Context, registrationID string, current bool) error {
	logger.EnterMethod("DashboardView.ToggleVerification", "registrationID", registrationID, "current", current)
	next := !current

	token, err := v.session.Read(ctx)
	if err != nil {
		notify(v.notifier, LevelError, msgUpdateError, "")
		logger.ExitMethodWithError("DashboardView.ToggleVerification", err)
		if errors.Is(err, session.ErrNoCredential) || errors.Is(err, session.ErrCredentialExpired) {
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
		return err
	}

	if _, err := v.backend.UpdateVerification(ctx, token, registrationID, next); err != nil {
		logger.ExitMethodWithError("DashboardView.ToggleVerification", err)
		if errors.Is(err, backend.ErrUnauthorized) {
			if cerr := v.session.Clear(ctx); cerr != nil {
				logger.Warn("Failed to clear rejected credential", "error", cerr)
			}
		}
		if reportedFailure(err) {
			msg := backend.ServerMessage(err)
			if msg == "" {
				msg = msgUpdateFailed
			}
			notify(v.notifier, LevelError, msg, "")
			return err
		}
		notify(v.notifier, LevelError, msgUpdateError, "")
		return err
	}

	v.mu.Lock()
	for i := range v.rows {
		if v.rows[i].RegistrationID == registrationID {
			v.rows[i].Verified = next
		}
	}
	for i := range v.users {
		for j := range v.users[i].Registrations {
			if v.users[i].Registrations[j].ID == registrationID {
				v.users[i].Registrations[j].Verified = next
			}
		}
	}
	v.mu.Unlock()

	word := "un-verified"
	if next {
		word = "verified"
	}
	notify(v.notifier, LevelSuccess, fmt.Sprintf(msgVerifiedFormat, word), "")
	logger.ExitMethod("DashboardView.ToggleVerification", "registrationID", registrationID, "verified", next)
	return nil
}

// Logout drops the admin credential
func (v *DashboardView) Logout(ctx context.Context) error {
	if err := v.session.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	v.mu.Lock()
	v.state = ViewAccessDenied
	v.message = msgAdminLogin
	v.users = nil
	v.rows = nil
	v.mu.Unlock()
	notify(v.notifier, LevelInfo, msgLoggedOut, "")
	return nil
}

func (v *DashboardView) set(state ViewState, msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = state
	v.message = msg
}

// Flatten turns users and their registrations into one row per registration,
// newest registration first
func Flatten(users []domain.User) []domain.TableRow {
	var rows []domain.TableRow
	for _, u := range users {
		for _, reg := range u.Registrations {
			rows = append(rows, domain.TableRow{
				UserID:               u.ID,
				UserEmail:            u.Email,
				RegistrationID:       reg.ID,
				RegistrationType:     reg.RegistrationType,
				EventName:            reg.EventName,
				DisplayName:          reg.DisplayName(),
				TeamLeader:           reg.TeamLeader,
				TeamMembers:          reg.TeamMembers,
				TeamNumber:           reg.TeamNumber,
				TransactionUID:       reg.TransactionUID,
				PaymentScreenshotURL: reg.PaymentScreenshotURL,
				Verified:             reg.Verified,
				RegCreatedAt:         reg.CreatedAt,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].RegCreatedAt.After(rows[j].RegCreatedAt)
	})
	return rows
}

// Filter keeps rows where query appears, ignoring case, in the email,
// transaction id, event name or display name. An empty query keeps every row.
func Filter(rows []domain.TableRow, query string) []domain.TableRow {
	q := strings.ToLower(query)
	out := make([]domain.TableRow, 0, len(rows))
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.UserEmail), q) ||
			strings.Contains(strings.ToLower(r.TransactionUID), q) ||
			strings.Contains(strings.ToLower(r.EventName), q) ||
			strings.Contains(strings.ToLower(r.DisplayName), q) {
			out = append(out, r)
		}
	}
	return out
}

// reportedFailure is true when the backend answered 2xx but with success=false
func reportedFailure(err error) bool {
	var serr *backend.ServerError
	return errors.As(err, &serr) && serr.StatusCode >= 200 && serr.StatusCode < 300
}
