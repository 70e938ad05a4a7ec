package web

import (
	"strings"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// multierr is implemented by errors.Join results. Wrapped joins stay whole so their prefix survives.
type multierr interface {
	Unwrap() []error
}

func unwrap(err error) []error {
	if merr, ok := err.(multierr); ok {
		var errs []error
		for _, err := range merr.Unwrap() {
			errs = append(errs, unwrap(err)...)
		}
		return errs
	}
	return []error{err}
}

func newErrorResponse(err error) errorResponse {
	errs := unwrap(err)
	if len(errs) == 1 {
		return errorResponse{Error: errs[0].Error()}
	}
	details := make([]string, 0, len(errs))
	for _, err := range errs {
		details = append(details, err.Error())
	}
	return errorResponse{
		Error:   strings.Join(details, "; "),
		Details: details,
	}
}
