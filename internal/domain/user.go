package domain

import "time"

type User struct {
	ID            string               `json:"_id"`
	Email         string               `json:"email"`
	CreatedAt     time.Time            `json:"createdAt"`
	Registrations []RegistrationRecord `json:"registrations,omitempty"`
}

// TableRow is one user and one of their registrations flattened for the admin table
type TableRow struct {
	UserID               string           `json:"userId"`
	UserEmail            string           `json:"userEmail"`
	RegistrationID       string           `json:"registrationId"`
	RegistrationType     RegistrationType `json:"registrationType"`
	EventName            string           `json:"eventName"`
	DisplayName          string           `json:"displayName"`
	TeamLeader           string           `json:"teamLeader,omitempty"`
	TeamMembers          []string         `json:"teamMembers,omitempty"`
	TeamNumber           string           `json:"teamNumber,omitempty"`
	TransactionUID       string           `json:"transactionUid"`
	PaymentScreenshotURL string           `json:"paymentScreenshotUrl"`
	Verified             bool             `json:"verified"`
	RegCreatedAt         time.Time        `json:"regCreatedAt"`
}
