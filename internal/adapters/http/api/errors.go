package api

import (
	"errors"
	"net/http"

	"github.com/smfc/matchday/internal/adapters/repository"
	service "github.com/smfc/matchday/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = service.ErrBackpressure
	ErrNotFound     = service.ErrNotFound
	ErrConflict     = errors.New("conflict")
)

// opError tags an error with the handler operation that produced it.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	switch {
	case e.err != nil:
		return e.op + ": " + e.err.Error()
	case e.kind != nil:
		return e.op + ": " + e.kind.Error()
	default:
		return e.op
	}
}

func (e *opError) Unwrap() []error {
	var out []error
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.err != nil {
		out = append(out, e.err)
	}
	return out
}

// Wrap prefixes err with op. It returns nil for a nil err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// WrapKind prefixes err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// classify maps an error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrPlayerNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrPredictionsClosed), errors.Is(err, ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, service.ErrUnknownPlayer),
		errors.Is(err, service.ErrTooFewPlayers),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidScore),
		errors.Is(err, service.ErrInvalidLimit),
		errors.Is(err, service.ErrInvalidSubmission):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
