package services

import "errors"

// Error taxonomy for the recommendation pipeline. Handlers map these to
// response codes; everything else is an internal error.
var (
	// ErrNotFound means the user, profile, or rule does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoCandidates means the fetch stage produced zero usable tracks
	// even after the fallback seed. No synthetic tracks are fabricated.
	ErrNoCandidates = errors.New("no candidate tracks available")

	// ErrServiceUnavailable means both pipeline branches failed or the
	// request was cancelled mid-pipeline.
	ErrServiceUnavailable = errors.New("recommendation service unavailable")
)

// FailureReason returns the human-readable reason and suggested fallback
// actions for a pipeline error. Presentation is the caller's concern.
func FailureReason(err error) (string, []string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return "We couldn't find that user's listening profile.", nil
	case errors.Is(err, ErrNoCandidates):
		return "No tracks matched the current context.",
			[]string{"try again", "browse curated playlists"}
	case errors.Is(err, ErrServiceUnavailable):
		return "Recommendations are temporarily unavailable.",
			[]string{"try again", "browse curated playlists"}
	default:
		return "Something went wrong generating recommendations.", []string{"try again"}
	}
}
