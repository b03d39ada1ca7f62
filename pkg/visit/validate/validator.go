package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"beacon-hq/beacon/pkg/visit"
)

// timezonePattern is the restricted charset for IANA-style timezone names
// ("Europe/Paris", "Etc/GMT+2").
var timezonePattern = regexp.MustCompile(`^[A-Za-z0-9_/+-]+$`)

// fieldBounds describes the length constraints of a payload field.
type fieldBounds struct {
	name string
	min  int
	max  int
}

var payloadFields = []fieldBounds{
	{"language", visit.MinLanguageLen, visit.MaxLanguageLen},
	{"userAgent", visit.MinUserAgentLen, visit.MaxUserAgentLen},
	{"platform", visit.MinPlatformLen, visit.MaxPlatformLen},
	{"timezone", visit.MinTimezoneLen, visit.MaxTimezoneLen},
	{"recordedAt", visit.MinRecordedAtLen, visit.MaxRecordedAtLen},
}

// Validate checks an untyped payload and produces a fully populated Visit
// (without an id) or the ordered list of per-field violations. Violations
// are collected, not short-circuited, so the caller can report every
// problem at once.
//
// clientIP is the admitting network identity and is always taken from the
// connection, never from the payload. now supplies the default for an
// absent recordedAt and is injectable for tests.
//
// Validation never touches storage and has no side effects.
func Validate(payload map[string]any, clientIP string, now time.Time) (*visit.Visit, []visit.FieldError) {
	var errs []visit.FieldError
	values := make(map[string]string, len(payloadFields))

	for _, fb := range payloadFields {
		raw, present := payload[fb.name]

		// recordedAt is the one optional field: absent or empty values
		// default to the current UTC time at admission.
		if fb.name == "recordedAt" && !present {
			values[fb.name] = now.UTC().Format(time.RFC3339)
			continue
		}

		if !present {
			errs = append(errs, visit.FieldError{Field: fb.name, Message: "required"})
			continue
		}

		s, ok := raw.(string)
		if !ok {
			errs = append(errs, visit.FieldError{Field: fb.name, Message: "must be a string"})
			continue
		}

		s = strings.TrimSpace(s)
		if fb.name == "recordedAt" && s == "" {
			values[fb.name] = now.UTC().Format(time.RFC3339)
			continue
		}

		if len(s) < fb.min || len(s) > fb.max {
			errs = append(errs, visit.FieldError{
				Field:   fb.name,
				Message: fmt.Sprintf("length must be between %d and %d characters", fb.min, fb.max),
			})
			continue
		}

		if fb.name == "timezone" && !timezonePattern.MatchString(s) {
			errs = append(errs, visit.FieldError{
				Field:   fb.name,
				Message: "contains characters outside [A-Za-z0-9_/+-]",
			})
			continue
		}

		values[fb.name] = s
	}

	if len(clientIP) < visit.MinIPLen || len(clientIP) > visit.MaxIPLen {
		errs = append(errs, visit.FieldError{
			Field:   "ip",
			Message: fmt.Sprintf("length must be between %d and %d characters", visit.MinIPLen, visit.MaxIPLen),
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &visit.Visit{
		IP:         clientIP,
		Language:   values["language"],
		UserAgent:  values["userAgent"],
		Platform:   values["platform"],
		Timezone:   values["timezone"],
		RecordedAt: values["recordedAt"],
	}, nil
}
