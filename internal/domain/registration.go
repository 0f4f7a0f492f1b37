package domain

import (
	"time"
)

type RegistrationType string

const (
	RegistrationTypeSolo RegistrationType = "solo"
	RegistrationTypeTeam RegistrationType = "team"
)

// Valid reports whether t is one of the two registration variants
func (t RegistrationType) Valid() bool {
	return t == RegistrationTypeSolo || t == RegistrationTypeTeam
}

// Screenshot is the payment proof uploaded with a registration
type Screenshot struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (s *Screenshot) Size() int64 {
	if s == nil {
		return 0
	}
	return int64(len(s.Data))
}

// RegistrationForm is the superset of every field the registration form holds.
// Only the fields of the active RegistrationType take part in validation.
type RegistrationForm struct {
	RegistrationType  RegistrationType
	FullName          string
	TeamName          string
	TeamLeader        string
	TeamMembers       []string
	EventName         string
	TransactionUID    string
	PaymentScreenshot *Screenshot
}

// Payment holds the fields shared by both registration variants
type Payment struct {
	EventName         string      `json:"eventName" validate:"required"`
	TransactionUID    string      `json:"transactionUid" validate:"required"`
	PaymentScreenshot *Screenshot `json:"-"`
}

// Registration is a validated submission, either *SoloRegistration or *TeamRegistration
type Registration interface {
	Type() RegistrationType
	Common() *Payment
}

type SoloRegistration struct {
	Payment
	FullName string `json:"fullName" validate:"required,min=2,max=100"`
}

func (r *SoloRegistration) Type() RegistrationType { return RegistrationTypeSolo }
func (r *SoloRegistration) Common() *Payment       { return &r.Payment }

type TeamRegistration struct {
	Payment
	TeamName    string   `json:"teamName" validate:"required,max=100"`
	TeamLeader  string   `json:"teamLeader" validate:"required,min=2"`
	TeamMembers []string `json:"teamMembers" validate:"required,min=1,dive,required"`
}

func (r *TeamRegistration) Type() RegistrationType { return RegistrationTypeTeam }
func (r *TeamRegistration) Common() *Payment       { return &r.Payment }

// RegistrationRecord is a registration as stored by the backend
type RegistrationRecord struct {
	ID                   string           `json:"_id"`
	RegistrationType     RegistrationType `json:"registrationType"`
	EventName            string           `json:"eventName"`
	TransactionUID       string           `json:"transactionUid"`
	PaymentScreenshotURL string           `json:"paymentScreenshotUrl"`
	Verified             bool             `json:"verified"`
	CreatedAt            time.Time        `json:"createdAt"`

	FullName    string   `json:"fullName,omitempty"`
	TeamName    string   `json:"teamName,omitempty"`
	TeamLeader  string   `json:"teamLeader,omitempty"`
	TeamMembers []string `json:"teamMembers,omitempty"`
	// Free-form info field; older records use it for a phone number or a team size
	TeamNumber string `json:"teamNumber,omitempty"`
}

const (
	UnnamedTeam = "Unnamed Team"
	UnnamedUser = "Unnamed User"
)

// DisplayName is the team name for team records and the participant name otherwise.
// Solo records fall back to teamName because some legacy records stored the
// participant name there.
func (r RegistrationRecord) DisplayName() string {
	if r.RegistrationType == RegistrationTypeTeam {
		if r.TeamName != "" {
			return r.TeamName
		}
		return UnnamedTeam
	}
	if r.FullName != "" {
		return r.FullName
	}
	if r.TeamName != "" {
		return r.TeamName
	}
	return UnnamedUser
}

// StatusText is the review state shown to participants
func (r RegistrationRecord) StatusText() string {
	if r.Verified {
		return "Verified"
	}
	return "Pending Review"
}
