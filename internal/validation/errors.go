package validation

import (
	"strings"
)

// FieldError is one failed rule, addressed by a dotted field path
// such as "fullName" or "teamMembers.1"
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// FieldErrors is an ordered list of failures, in form field order
type FieldErrors []FieldError

// Map returns path to message. When a path failed several rules the first message wins.
func (e FieldErrors) Map() map[string]string {
	m := make(map[string]string, len(e))
	for _, fe := range e {
		if _, ok := m[fe.Path]; !ok {
			m[fe.Path] = fe.Message
		}
	}
	return m
}

func (e FieldErrors) First() (FieldError, bool) {
	if len(e) == 0 {
		return FieldError{}, false
	}
	return e[0], true
}

// Scoped returns the errors for field and its elements ("teamMembers", "teamMembers.0", ...)
func (e FieldErrors) Scoped(field string) FieldErrors {
	var out FieldErrors
	for _, fe := range e {
		if fe.Path == field || strings.HasPrefix(fe.Path, field+".") {
			out = append(out, fe)
		}
	}
	return out
}

// Without returns a copy with every error scoped to field removed
func (e FieldErrors) Without(fields ...string) FieldErrors {
	out := make(FieldErrors, 0, len(e))
next:
	for _, fe := range e {
		for _, f := range fields {
			if fe.Path == f || strings.HasPrefix(fe.Path, f+".") {
				continue next
			}
		}
		out = append(out, fe)
	}
	return out
}

// ValidationError carries the field errors of a rejected submission
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	if first, ok := e.Fields.First(); ok {
		return "validation failed: " + first.Path + ": " + first.Message
	}
	return "validation failed"
}
