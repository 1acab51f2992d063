package items

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-\+\(\)]+$`)
)

// ValidationError reports missing or malformed request fields. It is raised
// before any store or network access.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", strings.Join(e.Fields, ", "), e.Reason)
}

// Validate checks that all five fields are present after sanitization.
// A field that sanitizes to the empty string would vanish from the flat-file
// encoding and shift every later field, so it counts as missing.
func (r Record) Validate() error {
	var missing []string
	for i, v := range Sanitize(r).Fields() {
		if v == "" {
			missing = append(missing, FieldNames[i])
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing, Reason: "required"}
	}
	return nil
}

// ValidateStrict applies Validate plus the format checks used by the
// interactive submit form.
func (r Record) ValidateStrict() error {
	if err := r.Validate(); err != nil {
		return err
	}
	s := Sanitize(r)

	var bad []string
	var reasons []string
	if len([]rune(s.Description)) < 10 {
		bad = append(bad, "description")
		reasons = append(reasons, "description must be at least 10 characters")
	}
	if len([]rune(s.ContactName)) < 2 {
		bad = append(bad, "name")
		reasons = append(reasons, "name must be at least 2 characters")
	}
	if !emailPattern.MatchString(s.ContactEmail) {
		bad = append(bad, "email")
		reasons = append(reasons, "invalid email address")
	}
	if len(s.ContactPhone) < 10 || !phonePattern.MatchString(s.ContactPhone) {
		bad = append(bad, "phonenum")
		reasons = append(reasons, "invalid phone number")
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad, Reason: strings.Join(reasons, "; ")}
	}
	return nil
}
