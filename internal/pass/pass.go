// Package pass renders entry passes for verified registrations as QR codes.
package pass

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"

	"impact-registration/internal/config"
	"impact-registration/internal/domain"
)

var ErrNotVerified = errors.New("registration is not verified yet")

// Payload is what the QR code carries
type Payload struct {
	Festival       string                  `json:"festival"`
	RegistrationID string                  `json:"registrationId"`
	Type           domain.RegistrationType `json:"registrationType"`
	EventName      string                  `json:"eventName"`
	Name           string                  `json:"name"`
	TransactionUID string                  `json:"transactionUid"`
}

type Generator struct {
	festival string
	size     int
}

func NewGenerator(cfg config.PassConfig) *Generator {
	return &Generator{festival: cfg.Festival, size: cfg.SizePixels}
}

// PayloadFor builds the pass contents for rec, refusing unverified records
func (g *Generator) PayloadFor(rec domain.RegistrationRecord) (Payload, error) {
	if !rec.Verified {
		return Payload{}, fmt.Errorf("%w: %s", ErrNotVerified, rec.ID)
	}
	return Payload{
		Festival:       g.festival,
		RegistrationID: rec.ID,
		Type:           rec.RegistrationType,
		EventName:      rec.EventName,
		Name:           rec.DisplayName(),
		TransactionUID: rec.TransactionUID,
	}, nil
}

// PNG renders the pass for rec as a PNG image
func (g *Generator) PNG(rec domain.RegistrationRecord) ([]byte, error) {
	content, err := g.content(rec)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(content, qrcode.Medium, g.size)
	if err != nil {
		return nil, fmt.Errorf("failed to render pass: %w", err)
	}
	return png, nil
}

// WriteFile renders the pass for rec into a PNG file at path
func (g *Generator) WriteFile(rec domain.RegistrationRecord, path string) error {
	content, err := g.content(rec)
	if err != nil {
		return err
	}
	if err := qrcode.WriteFile(content, qrcode.Medium, g.size, path); err != nil {
		return fmt.Errorf("failed to write pass: %w", err)
	}
	return nil
}

func (g *Generator) content(rec domain.RegistrationRecord) (string, error) {
	p, err := g.PayloadFor(rec)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses the text read back from a pass
func Decode(content string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return Payload{}, fmt.Errorf("not an entry pass: %w", err)
	}
	if p.RegistrationID == "" {
		return Payload{}, errors.New("not an entry pass: missing registration id")
	}
	return p, nil
}
