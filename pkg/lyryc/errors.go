package lyryc

import (
	"context"
	"errors"
	"fmt"

	"github.com/Error0229/Lyryc-sub000/internal/dtw"
	"github.com/Error0229/Lyryc-sub000/internal/lrc"
	"github.com/Error0229/Lyryc-sub000/internal/provider"
)

// ErrCancelled marks a request that was cancelled or superseded. It is
// never shown to the user.
var ErrCancelled = errors.New("lyrics request cancelled")

var (
	ErrNoDataFound           = provider.ErrNoDataFound
	ErrNetwork               = provider.ErrNetwork
	ErrNetworkTimeout        = provider.ErrNetworkTimeout
	ErrMalformedLine         = lrc.ErrMalformedLine
	ErrRefinementUnavailable = dtw.ErrRefinementUnavailable
)

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// Outcome is what the user sees for a request.
type Outcome string

const (
	OutcomeLyrics    Outcome = "lyrics"
	OutcomeEmpty     Outcome = "empty"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

// Classify maps an error from the service to an Outcome. A nil error is
// OutcomeLyrics; use Result.Outcome to tell lyrics from an empty result.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeLyrics
	case isCancellation(err):
		return OutcomeCancelled
	case errors.Is(err, ErrNoDataFound):
		return OutcomeEmpty
	default:
		return OutcomeError
	}
}

// UserMessage returns the short text shown for err, empty for success and
// for cancelled requests.
func UserMessage(err error) string {
	switch Classify(err) {
	case OutcomeLyrics, OutcomeCancelled:
		return ""
	case OutcomeEmpty:
		return "No lyrics found for this track."
	}
	switch {
	case errors.Is(err, ErrNetworkTimeout):
		return "The lyrics service timed out. Try again."
	case errors.Is(err, ErrNetwork):
		return "Could not reach the lyrics service. Try again."
	default:
		return "Something went wrong while loading lyrics. Try again."
	}
}
