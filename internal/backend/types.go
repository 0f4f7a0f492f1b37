package backend

import "impact-registration/internal/domain"

// StatusResponse is the envelope every mutating endpoint answers with
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r *StatusResponse) status() *StatusResponse { return r }

// Text is the backend's human-readable explanation, if it sent one
func (r *StatusResponse) Text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}

type AuthResponse struct {
	StatusResponse
	Token string `json:"token,omitempty"`
}

type ProfileResponse struct {
	StatusResponse
	User          domain.User                 `json:"user"`
	Registrations []domain.RegistrationRecord `json:"registrations"`
}

type CheckTokenResponse struct {
	Valid bool `json:"valid"`
}

// Credentials is the sign-in / sign-up request body
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type updateVerificationRequest struct {
	RegistrationID string `json:"registrationId"`
	Verified       bool   `json:"verified"`
}

type dashboardEnvelope struct {
	Users []domain.User `json:"users"`
}

type statusful interface {
	status() *StatusResponse
}
