package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"impact-registration/internal/domain"
)

const defaultScreenshotName = "payment-screenshot"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeRegistration builds the multipart body for a registration.
// Team members travel as one field holding a JSON array.
func EncodeRegistration(reg domain.Registration) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	p := reg.Common()

	fields := [][2]string{
		{"registrationType", string(reg.Type())},
		{"eventName", p.EventName},
		{"transactionUid", p.TransactionUID},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if err := writeScreenshot(w, p.PaymentScreenshot); err != nil {
		return nil, "", err
	}

	switch r := reg.(type) {
	case *domain.SoloRegistration:
		if err := w.WriteField("fullName", r.FullName); err != nil {
			return nil, "", err
		}
	case *domain.TeamRegistration:
		members, err := json.Marshal(r.TeamMembers)
		if err != nil {
			return nil, "", err
		}
		team := [][2]string{
			{"teamName", r.TeamName},
			{"teamLeader", r.TeamLeader},
			{"teamMembers", string(members)},
		}
		for _, f := range team {
			if err := w.WriteField(f[0], f[1]); err != nil {
				return nil, "", err
			}
		}
	default:
		return nil, "", fmt.Errorf("unsupported registration %T", reg)
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeScreenshot(w *multipart.Writer, shot *domain.Screenshot) error {
	if shot == nil {
		return fmt.Errorf("payment screenshot is missing")
	}
	name := shot.Filename
	if name == "" {
		name = defaultScreenshotName
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="paymentScreenshot"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", shot.ContentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(shot.Data)
	return err
}
