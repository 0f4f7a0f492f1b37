package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"impact-registration/internal/domain"
)

// MaxScreenshotBytes is the upload limit for payment screenshots
const MaxScreenshotBytes = 5_000_000

// AllowedScreenshotTypes lists the accepted screenshot MIME types
var AllowedScreenshotTypes = []string{"image/jpeg", "image/png", "image/webp"}

// messages maps "<field>.<tag>" to the text shown next to the field.
// Element errors of a list use "<field>[].<tag>".
var messages = map[string]string{
	"fullName.required":          "Name must be at least 2 characters",
	"fullName.min":               "Name must be at least 2 characters",
	"fullName.max":               "Name must be less than 100 characters",
	"teamName.required":          "Team name is required",
	"teamName.max":               "Team name must be less than 100 characters",
	"teamLeader.required":        "Leader name is required",
	"teamLeader.min":             "Leader name is required",
	"teamMembers.required":       "At least one team member is required",
	"teamMembers.min":            "At least one team member is required",
	"teamMembers[].required":     "Member name cannot be empty",
	"eventName.required":         "Please select an event",
	"eventName.event":            "Selected event is not open to this registration type",
	"transactionUid.required":    "Transaction ID is required",
	"paymentScreenshot.required": "Payment screenshot is required",
	"paymentScreenshot.max":      "Max file size is 5MB.",
	"paymentScreenshot.mimetype": "Only .jpg, .png, .webp formats are supported.",
}

// fieldOrder keeps errors in form order regardless of traversal order
var fieldOrder = map[string]int{
	"registrationType":  0,
	"fullName":          1,
	"teamName":          2,
	"teamLeader":        3,
	"teamMembers":       4,
	"eventName":         5,
	"transactionUid":    6,
	"paymentScreenshot": 7,
}

// Schema validates registration forms against the solo and team shapes
type Schema struct {
	v *validator.Validate
}

func New() *Schema {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validatePayment, domain.SoloRegistration{}, domain.TeamRegistration{})
	return &Schema{v: v}
}

// Validate checks form against the shape selected by its RegistrationType.
// Fields that belong to the other shape are dropped. On success the returned
// Registration holds trimmed values and the error list is empty.
func (s *Schema) Validate(form domain.RegistrationForm) (domain.Registration, FieldErrors) {
	payment := domain.Payment{
		EventName:         form.EventName,
		TransactionUID:    strings.TrimSpace(form.TransactionUID),
		PaymentScreenshot: form.PaymentScreenshot,
	}

	var reg domain.Registration
	switch form.RegistrationType {
	case domain.RegistrationTypeSolo:
		reg = &domain.SoloRegistration{
			Payment:  payment,
			FullName: strings.TrimSpace(form.FullName),
		}
	case domain.RegistrationTypeTeam:
		members := make([]string, len(form.TeamMembers))
		for i, m := range form.TeamMembers {
			members[i] = strings.TrimSpace(m)
		}
		reg = &domain.TeamRegistration{
			Payment:     payment,
			TeamName:    strings.TrimSpace(form.TeamName),
			TeamLeader:  strings.TrimSpace(form.TeamLeader),
			TeamMembers: members,
		}
	default:
		return nil, FieldErrors{{
			Path:    "registrationType",
			Message: fmt.Sprintf("Invalid registration type %q, expected solo or team", form.RegistrationType),
		}}
	}

	err := s.v.Struct(reg)
	if err == nil {
		return reg, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, FieldErrors{{Path: "registrationType", Message: err.Error()}}
	}
	return nil, translate(verrs)
}

func translate(verrs validator.ValidationErrors) FieldErrors {
	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		base, index, isElem := splitIndex(field)

		key := base + "." + fe.Tag()
		path := base
		if isElem {
			key = base + "[]." + fe.Tag()
			path = base + "." + index
		}

		msg, ok := messages[key]
		if !ok {
			msg = fmt.Sprintf("%s failed %s validation", base, fe.Tag())
		}
		out = append(out, FieldError{Path: path, Message: msg})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return fieldOrder[rootOf(out[i].Path)] < fieldOrder[rootOf(out[j].Path)]
	})
	return out
}

// validatePayment checks the shared payment fields that need the registration type
func validatePayment(sl validator.StructLevel) {
	var p domain.Payment
	var t domain.RegistrationType
	switch r := sl.Current().Interface().(type) {
	case domain.SoloRegistration:
		p, t = r.Payment, domain.RegistrationTypeSolo
	case domain.TeamRegistration:
		p, t = r.Payment, domain.RegistrationTypeTeam
	default:
		return
	}

	if p.EventName != "" && !domain.EventEligible(p.EventName, t) {
		sl.ReportError(p.EventName, "eventName", "EventName", "event", string(t))
	}

	shot := p.PaymentScreenshot
	if shot == nil {
		sl.ReportError(shot, "paymentScreenshot", "PaymentScreenshot", "required", "")
		return
	}
	if shot.Size() > MaxScreenshotBytes {
		sl.ReportError(shot.Size(), "paymentScreenshot", "PaymentScreenshot", "max", fmt.Sprint(MaxScreenshotBytes))
	}
	if !AllowedScreenshotType(shot.ContentType) {
		sl.ReportError(shot.ContentType, "paymentScreenshot", "PaymentScreenshot", "mimetype", strings.Join(AllowedScreenshotTypes, " "))
	}
}

// AllowedScreenshotType reports whether ct is an accepted screenshot MIME type
func AllowedScreenshotType(ct string) bool {
	for _, allowed := range AllowedScreenshotTypes {
		if ct == allowed {
			return true
		}
	}
	return false
}

// splitIndex turns "teamMembers[2]" into ("teamMembers", "2", true)
func splitIndex(field string) (string, string, bool) {
	open := strings.IndexByte(field, '[')
	if open < 0 || !strings.HasSuffix(field, "]") {
		return field, "", false
	}
	return field[:open], field[open+1 : len(field)-1], true
}

func rootOf(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}
