package api

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/pure-golang/mailrelay/relay"
)

// FieldError describes one rejected part of the request body. loc starts
// with "body" followed by the field name, if any.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError is the 422 response body.
type ValidationError struct {
	Detail []FieldError `json:"detail"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Detail))
	for _, d := range e.Detail {
		parts = append(parts, strings.Join(d.Loc, ".")+": "+d.Msg)
	}
	return strings.Join(parts, "; ")
}

// emailPayload uses pointers so that an absent field can be told apart from
// an empty string. subject and message are required but may be empty.
type emailPayload struct {
	To      *string `json:"to" validate:"required,email,email_domain"`
	Subject *string `json:"subject" validate:"required"`
	Message *string `json:"message" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("email_domain", emailDomain); err != nil {
		panic(err)
	}
	return v
}

// emailDomain requires a dotted domain part, rejecting addresses such as user@localhost.
func emailDomain(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return false
	}
	domain := strings.Trim(addr[at+1:], ".")
	return strings.Contains(domain, ".")
}

// ValidateEmailRequest applies the /send-email rules to an already built request.
func ValidateEmailRequest(req relay.EmailRequest) error {
	if _, verr := validatePayload(emailPayload{To: &req.To, Subject: &req.Subject, Message: &req.Message}); verr != nil {
		return verr
	}
	return nil
}

func decodeEmailRequest(w http.ResponseWriter, r *http.Request, limit int64) (relay.EmailRequest, *ValidationError) {
	body := r.Body
	if limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}

	dec := json.NewDecoder(body)
	var p emailPayload
	if err := dec.Decode(&p); err != nil {
		return relay.EmailRequest{}, decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return relay.EmailRequest{}, bodyError("JSON decode error: unexpected data after the object", "json_invalid")
	}

	return validatePayload(p)
}

func validatePayload(p emailPayload) (relay.EmailRequest, *ValidationError) {
	err := validate.Struct(p)
	if err == nil {
		return relay.EmailRequest{To: *p.To, Subject: *p.Subject, Message: *p.Message}, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return relay.EmailRequest{}, bodyError(err.Error(), "value_error")
	}

	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		fieldErr := FieldError{Loc: []string{"body", fe.Field()}}
		switch fe.Tag() {
		case "required":
			fieldErr.Msg, fieldErr.Type = "Field required", "missing"
		case "email", "email_domain":
			fieldErr.Msg, fieldErr.Type = "value is not a valid email address", "value_error"
		default:
			fieldErr.Msg, fieldErr.Type = "failed on the '"+fe.Tag()+"' rule", "value_error"
		}
		verr.Detail = append(verr.Detail, fieldErr)
	}
	return relay.EmailRequest{}, verr
}

func decodeError(err error) *ValidationError {
	var (
		maxErr  *http.MaxBytesError
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF):
		return bodyError("Field required", "missing")
	case errors.As(err, &maxErr):
		return bodyError("request body too large", "value_error.body_too_large")
	case errors.As(err, &typeErr) && typeErr.Field == "":
		return bodyError("Input should be a valid dictionary or object to extract fields from", "model_attributes_type")
	case errors.As(err, &typeErr):
		return &ValidationError{Detail: []FieldError{{
			Loc:  []string{"body", typeErr.Field},
			Msg:  "Input should be a valid string",
			Type: "string_type",
		}}}
	default:
		return bodyError("JSON decode error", "json_invalid")
	}
}

func bodyError(msg, typ string) *ValidationError {
	return &ValidationError{Detail: []FieldError{{Loc: []string{"body"}, Msg: msg, Type: typ}}}
}
