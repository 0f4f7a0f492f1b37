package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"impact-registration/internal/backend"
	"impact-registration/internal/domain"
	"impact-registration/internal/logger"
	"impact-registration/internal/session"
	"impact-registration/internal/validation"
)

type FormState string

const (
	StateEditing           FormState = "editing"
	StateSubmitting        FormState = "submitting"
	StateEditingWithErrors FormState = "editing-with-errors"
	StateSuccess           FormState = "success"
)

var (
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrFormComplete     = errors.New("registration already completed, reset the form first")
	ErrUnknownField     = errors.New("unknown form field")
	ErrMemberIndex      = errors.New("team member index out of range")
	ErrNotLoggedIn      = errors.New("no stored credential")
)

const (
	msgLoginRequired    = "You must be logged in to register."
	msgSessionExpired   = "Session expired. Please log in again."
	msgValidationFailed = "Form Validation Failed"
	msgCheckFields      = "Please check all fields."
	msgRegistrationFail = "Registration failed."
	msgRegistrationOK   = "Registration successful!"
	msgComplete         = "Registration Complete!"
)

// Field names accepted by SetField
const (
	FieldFullName       = "fullName"
	FieldTeamName       = "teamName"
	FieldTeamLeader     = "teamLeader"
	FieldEventName      = "eventName"
	FieldTransactionUID = "transactionUid"
)

// Confirmation is what the success screen shows
type Confirmation struct {
	Title     string
	Message   string
	Type      domain.RegistrationType
	EventName string
}

// RegistrationForm drives one registration from editing through submission.
// All methods are safe for concurrent use; mutations are refused while a
// submission is in flight.
type RegistrationForm struct {
	backend  Backend
	session  *session.Session
	schema   *validation.Schema
	notifier Notifier
	event    string

	mu           sync.Mutex
	state        FormState
	values       domain.RegistrationForm
	errs         validation.FieldErrors
	confirmation *Confirmation
}

type FormOption func(*RegistrationForm)

// WithEvent preselects an event by name or id. Unknown events are ignored.
func WithEvent(nameOrID string) FormOption {
	return func(f *RegistrationForm) {
		if ev, ok := domain.FindEvent(nameOrID); ok {
			f.event = ev.Name
		}
	}
}

func NewRegistrationForm(b Backend, sess *session.Session, schema *validation.Schema, n Notifier, opts ...FormOption) *RegistrationForm {
	f := &RegistrationForm{
		backend:  b,
		session:  sess,
		schema:   schema,
		notifier: n,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.values = f.initialValues()
	f.state = StateEditing
	return f
}

func (f *RegistrationForm) initialValues() domain.RegistrationForm {
	return domain.RegistrationForm{
		RegistrationType: domain.RegistrationTypeSolo,
		TeamMembers:      []string{""},
		EventName:        f.event,
	}
}

func (f *RegistrationForm) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Values returns a copy of the current field values
func (f *RegistrationForm) Values() domain.RegistrationForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.values
	v.TeamMembers = append([]string(nil), f.values.TeamMembers...)
	return v
}

func (f *RegistrationForm) Errors() validation.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append(validation.FieldErrors(nil), f.errs...)
}

// ErrorFor returns the message shown next to field, if any
func (f *RegistrationForm) ErrorFor(path string) string {
	return f.Errors().Map()[path]
}

func (f *RegistrationForm) Confirmation() (Confirmation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmation == nil {
		return Confirmation{}, false
	}
	return *f.confirmation, true
}

// AvailableEvents lists the events open to the selected registration type
func (f *RegistrationForm) AvailableEvents() []domain.Event {
	f.mu.Lock()
	t := f.values.RegistrationType
	f.mu.Unlock()
	return domain.EventsFor(t)
}

func (f *RegistrationForm) SetField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}

	switch name {
	case FieldFullName:
		f.values.FullName = value
	case FieldTeamName:
		f.values.TeamName = value
	case FieldTeamLeader:
		f.values.TeamLeader = value
	case FieldEventName:
		f.values.EventName = value
	case FieldTransactionUID:
		f.values.TransactionUID = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	f.clearErrors(name)
	return nil
}

func (f *RegistrationForm) SetMember(index int, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	if index < 0 || index >= len(f.values.TeamMembers) {
		return fmt.Errorf("%w: %d", ErrMemberIndex, index)
	}
	f.values.TeamMembers[index] = value
	f.clearErrors("teamMembers")
	return nil
}

func (f *RegistrationForm) AddMember() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	f.values.TeamMembers = append(f.values.TeamMembers, "")
	return nil
}

func (f *RegistrationForm) RemoveMember(index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	if index < 0 || index >= len(f.values.TeamMembers) {
		return fmt.Errorf("%w: %d", ErrMemberIndex, index)
	}
	members := make([]string, 0, len(f.values.TeamMembers)-1)
	members = append(members, f.values.TeamMembers[:index]...)
	f.values.TeamMembers = append(members, f.values.TeamMembers[index+1:]...)
	// indices shift, so per-member errors no longer line up
	f.clearErrors("teamMembers")
	return nil
}

func (f *RegistrationForm) SetScreenshot(shot *domain.Screenshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	f.values.PaymentScreenshot = shot
	f.clearErrors("paymentScreenshot")
	return nil
}

// SetRegistrationType switches between solo and team. Each switch clears the
// selected event and the errors of the fields that only the previous type uses.
func (f *RegistrationForm) SetRegistrationType(t domain.RegistrationType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: registration type %q", ErrUnknownField, t)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editable(); err != nil {
		return err
	}
	if f.values.RegistrationType == t {
		return nil
	}

	f.values.RegistrationType = t
	f.values.EventName = ""
	f.clearErrors("registrationType", FieldEventName, FieldFullName, FieldTeamName, FieldTeamLeader, "teamMembers")
	return nil
}

// Submit validates the form and, when it is valid and a credential is
// stored, posts it to the backend exactly once. The returned error is also
// reflected in the form state and in a notification.
func (f *RegistrationForm) Submit(ctx context.Context) error {
	logger.EnterMethod("RegistrationForm.Submit")

	f.mu.Lock()
	switch f.state {
	case StateSubmitting:
		f.mu.Unlock()
		return ErrSubmitInProgress
	case StateSuccess:
		f.mu.Unlock()
		return ErrFormComplete
	}
	f.state = StateSubmitting
	f.errs = nil
	values := f.values
	values.TeamMembers = append([]string(nil), f.values.TeamMembers...)
	f.mu.Unlock()

	reg, ferrs := f.schema.Validate(values)
	if len(ferrs) > 0 {
		detail := msgCheckFields
		if first, ok := ferrs.First(); ok {
			detail = first.Message
		}
		f.finish(StateEditingWithErrors, ferrs, nil)
		notify(f.notifier, LevelError, msgValidationFailed, detail)
		err := &validation.ValidationError{Fields: ferrs}
		logger.ExitMethodWithError("RegistrationForm.Submit", err)
		return err
	}

	token, err := f.session.Read(ctx)
	if err != nil {
		msg := msgLoginRequired
		switch {
		case errors.Is(err, session.ErrCredentialExpired):
			msg = msgSessionExpired
		case errors.Is(err, session.ErrNoCredential):
			err = fmt.Errorf("%w: %v", ErrNotLoggedIn, err)
		default:
			err = fmt.Errorf("failed to read credential: %w", err)
		}
		f.finish(StateEditing, nil, nil)
		notify(f.notifier, LevelError, msg, "")
		logger.ExitMethodWithError("RegistrationForm.Submit", err)
		return err
	}

	if _, err := f.backend.SubmitRegistration(ctx, token, reg); err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			if cerr := f.session.Clear(ctx); cerr != nil {
				logger.Warn("Failed to clear rejected credential", "error", cerr)
			}
		}
		msg := backend.ServerMessage(err)
		if msg == "" {
			msg = msgRegistrationFail
		}
		f.finish(StateEditing, nil, nil)
		notify(f.notifier, LevelError, msg, "")
		logger.ExitMethodWithError("RegistrationForm.Submit", err)
		return err
	}

	conf := &Confirmation{
		Title:     msgComplete,
		Message:   fmt.Sprintf("Your %s registration has been received.", reg.Type()),
		Type:      reg.Type(),
		EventName: reg.Common().EventName,
	}
	f.finish(StateSuccess, nil, conf)
	notify(f.notifier, LevelSuccess, msgRegistrationOK, conf.EventName)
	logger.ExitMethod("RegistrationForm.Submit", "type", reg.Type(), "event", conf.EventName)
	return nil
}

// Reset starts a new registration after a completed one, or discards the
// current input. The preselected event, if any, is restored.
func (f *RegistrationForm) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	f.values = f.initialValues()
	f.errs = nil
	f.confirmation = nil
	f.state = StateEditing
	return nil
}

func (f *RegistrationForm) finish(state FormState, errs validation.FieldErrors, conf *Confirmation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.errs = errs
	f.confirmation = conf
}

// editable must be called with mu held
func (f *RegistrationForm) editable() error {
	switch f.state {
	case StateSubmitting:
		return ErrSubmitInProgress
	case StateSuccess:
		return ErrFormComplete
	}
	return nil
}

// clearErrors must be called with mu held
func (f *RegistrationForm) clearErrors(fields ...string) {
	if len(f.errs) == 0 {
		return
	}
	f.errs = f.errs.Without(fields...)
	if len(f.errs) == 0 && f.state == StateEditingWithErrors {
		f.state = StateEditing
	}
}
