package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/export"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
	"github.com/Badr133ne/sim-charge-guardian/internal/store"
)

const maxBodyBytes = 1 << 20

var (
	errBadBody  = errors.New("malformed request body")
	errNotFound = errors.New("not found")
)

// validationError carries a message meant for the user.
type validationError struct{ msg string }

func (e validationError) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return validationError{msg: fmt.Sprintf(format, args...)}
}

// amountInput accepts an amount as a JSON number or as the text a user typed
// ("1500", "12,5").
type amountInput struct {
	raw string
	set bool
}

func (a *amountInput) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var text string
	if err := json.Unmarshal(b, &text); err == nil {
		a.raw, a.set = text, true
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	a.raw, a.set = n.String(), true
	return nil
}

// value parses the amount; a missing or non-positive amount is a validation
// error.
func (a amountInput) value() (float64, error) {
	if !a.set {
		return 0, invalid("please enter a valid amount")
	}
	v, err := core.ParseAmount(a.raw)
	if err != nil {
		return 0, invalid("please enter a valid amount")
	}
	return v, nil
}

type errorBody struct {
	Error string `json:"error"`
}

// JSONResponse builds a JSON reply with a fluent API.
type JSONResponse struct {
	status  int
	headers map[string]string
	body    any
}

func NewJSONResponse() *JSONResponse {
	return &JSONResponse{status: http.StatusOK, headers: map[string]string{}}
}

func (b *JSONResponse) Status(code int) *JSONResponse {
	b.status = code
	return b
}

func (b *JSONResponse) Header(name, value string) *JSONResponse {
	b.headers[name] = value
	return b
}

func (b *JSONResponse) Body(v any) *JSONResponse {
	b.body = v
	return b
}

func (b *JSONResponse) Write(w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	if b.body == nil {
		w.WriteHeader(b.status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.status)
	_ = json.NewEncoder(w).Encode(b.body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeJSON reads a single JSON object into dst, refusing unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", errBadBody, err.Error())
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errBadBody)
	}
	return nil
}

func statusFor(err error) int {
	var ve validationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrEmptyNumber),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidTime),
		errors.Is(err, core.ErrInvalidUsername),
		errors.Is(err, core.ErrEmptyService):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrSimNotFound),
		errors.Is(err, errNotFound),
		errors.Is(err, export.ErrNothingToExport):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail answers with the status matching err. Server errors are logged and
// their details are not sent to the client, except for persistence failures
// where the change is already applied in memory.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		errType := log.ErrorTypeValidation
		if status == http.StatusNotFound {
			errType = log.ErrorTypeNotFound
		}
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldErrorType, errType,
			log.FieldError, err.Error())
		writeError(w, status, err.Error())
		return
	}

	errType := log.ErrorTypeInternal
	if errors.Is(err, store.ErrPersist) {
		errType = log.ErrorTypePersistence
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, log.NewFields().WithErrorType(errType))

	msg := "internal error"
	if errors.Is(err, store.ErrPersist) {
		msg = "change applied but could not be saved"
	}
	writeError(w, status, msg)
}

// sanitizeInput trims s and removes control characters except tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
