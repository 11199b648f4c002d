package valuation

import (
	"fmt"
	"net/http"
)

type Kind string

const (
	KindMissingInput Kind = "missing_input"
	KindInvalidInput Kind = "invalid_input"
	KindRemoteFetch  Kind = "remote_fetch_failure"
	KindNotFound     Kind = "not_found"
	KindInternal     Kind = "internal_failure"
)

// Error is a classified pipeline failure. Status and Detail are set for
// KindRemoteFetch and carry the indexer's response.
type Error struct {
	Kind   Kind
	Msg    string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to the status returned to API clients.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMissingInput, KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRemoteFetch:
		if e.Status >= 400 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
