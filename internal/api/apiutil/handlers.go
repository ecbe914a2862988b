package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/neotechkk/smashpoint/internal/booking"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// errorBody is the JSON shape every failed request returns. Conflict
// responses also carry the reservation holding the slot.
type errorBody struct {
	Error    string               `json:"error"`
	Conflict *booking.Reservation `json:"conflict,omitempty"`
}

// WriteEngineError maps a booking engine error onto an HTTP response:
// conflicts are 409 with the offending reservation in the body, validation
// failures 400, invalid transitions 422, denied capabilities 403, unknown
// ids 404. Anything else is a 500 and gets logged.
func WriteEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		conflictErr   *booking.ConflictError
		validationErr *booking.ValidationError
		transitionErr *booking.TransitionError
		handlerErr    HandlerError
	)
	switch {
	case errors.As(err, &conflictErr):
		WriteJSON(w, http.StatusConflict, errorBody{Error: conflictErr.Error(), Conflict: &conflictErr.Conflict})
	case errors.As(err, &validationErr):
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: validationErr.Error()})
	case errors.As(err, &transitionErr):
		WriteJSON(w, http.StatusUnprocessableEntity, errorBody{Error: transitionErr.Error()})
	case errors.Is(err, booking.ErrPermissionDenied):
		WriteJSON(w, http.StatusForbidden, errorBody{Error: "permission denied"})
	case errors.Is(err, booking.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, errorBody{Error: "reservation not found"})
	case errors.As(err, &handlerErr):
		log.Ctx(r.Context()).Error().Err(handlerErr.Err).Msg(handlerErr.Message)
		WriteJSON(w, handlerErr.Status, errorBody{Error: handlerErr.Message})
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// WriteBadRequest reports a malformed request body or parameter.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusBadRequest, errorBody{Error: message})
}
