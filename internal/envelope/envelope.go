// Package envelope turns raw webhook bodies into store.Message values.
package envelope

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/wirehook/internal/store"
)

// MaxTextLength is the largest accepted text, in characters.
const MaxTextLength = 4096

var msisdnPattern = regexp.MustCompile(`^\+\d{1,15}$`)

// aliases maps each envelope field to the JSON keys accepted for it, highest priority first.
var aliases = []struct {
	field string
	keys  []string
}{
	{"message_id", []string{"message_id"}},
	{"from_msisdn", []string{"from_msisdn", "from"}},
	{"to_msisdn", []string{"to_msisdn", "to"}},
	{"ts", []string{"ts"}},
	{"text", []string{"text"}},
}

var reasons = map[string]string{
	"required":    "field required",
	"msisdn":      "must be + followed by 1 to 15 digits",
	"utc_instant": "must be an ISO-8601 UTC timestamp ending in Z",
	"max":         fmt.Sprintf("must be at most %d characters", MaxTextLength),
}

// payload is the canonical envelope after aliasing.
type payload struct {
	MessageID   string  `json:"message_id" validate:"required"`
	FromAddress string  `json:"from_msisdn" validate:"required,msisdn"`
	ToAddress   string  `json:"to_msisdn" validate:"required,msisdn"`
	Timestamp   string  `json:"ts" validate:"required,utc_instant"`
	Text        *string `json:"text" validate:"omitnil,max=4096"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		return msisdnPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("utc_instant", func(fl validator.FieldLevel) bool {
		_, err := store.ParseTimestamp(fl.Field().String())
		return err == nil
	})
	return v
}

// FieldError names one offending field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Reason)
	}
	return "invalid envelope: " + strings.Join(parts, "; ")
}

// Validate parses raw as a JSON envelope and checks every field.
// On failure the error is a *ValidationError and no message is returned.
// Unknown keys are ignored.
func Validate(raw []byte) (store.Message, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return store.Message{}, &ValidationError{Errors: []FieldError{{Field: "body", Reason: "must be a JSON object"}}}
	}

	failed := make(map[string]string)
	var p payload
	for _, a := range aliases {
		value, ok := lookup(doc, a.keys)
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			failed[a.field] = "must be a string"
			continue
		}
		switch a.field {
		case "message_id":
			p.MessageID = s
		case "from_msisdn":
			p.FromAddress = s
		case "to_msisdn":
			p.ToAddress = s
		case "ts":
			p.Timestamp = s
		case "text":
			p.Text = &s
		}
	}

	if err := validate.Struct(p); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return store.Message{}, fmt.Errorf("validate envelope: %w", err)
		}
		for _, fe := range verrs {
			if _, seen := failed[fe.Field()]; seen {
				continue
			}
			failed[fe.Field()] = reason(fe.Tag())
		}
	}

	if len(failed) > 0 {
		verr := &ValidationError{}
		for _, a := range aliases {
			if r, ok := failed[a.field]; ok {
				verr.Errors = append(verr.Errors, FieldError{Field: a.field, Reason: r})
			}
		}
		return store.Message{}, verr
	}

	return store.Message{
		ID:          p.MessageID,
		FromAddress: p.FromAddress,
		ToAddress:   p.ToAddress,
		Timestamp:   p.Timestamp,
		Text:        p.Text,
	}, nil
}

// lookup returns the first present, non-null value among keys.
func lookup(doc map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		v, ok := doc[k]
		if !ok || string(v) == "null" {
			continue
		}
		return v, true
	}
	return nil, false
}

func reason(tag string) string {
	if r, ok := reasons[tag]; ok {
		return r
	}
	return "failed " + tag + " check"
}
