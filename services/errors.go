package services

import (
	"errors"
	"fmt"

	"roadside-assist-server/models"
)

// Stable error kinds returned by the job/bid/claim workflows. Handlers map
// these to HTTP statuses; they are never swallowed or coerced into loose
// strings.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")

	ErrJobNotBiddable     = errors.New("job is not accepting bids")
	ErrBidNotFound        = errors.New("bid not found")
	ErrBidAlreadyResolved = errors.New("bid has already been resolved")

	ErrTokenInvalid   = errors.New("claim token is invalid")
	ErrTokenExpired   = errors.New("claim token has expired")
	ErrAlreadyClaimed = errors.New("job has already been claimed")

	ErrExternalServiceUnavailable = errors.New("external service unavailable")
)

// InvalidTransitionError rejects an out-of-order status write, identifying
// both the current and the requested state.
type InvalidTransitionError struct {
	From models.JobStatus
	To   models.JobStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
