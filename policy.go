package legacyipc

import "github.com/pkg/errors"

// SentinelStarRating is sent when a decoded request could not be rated.
const SentinelStarRating = 0.0

// Outcome is the result of processing one connection up to the point where
// a response has to be chosen.
type Outcome struct {
	StarRating float64
	Err        error
}

// Decide chooses the response for an outcome. It reports false when no
// frame may be written at all.
//
//   - no error: the rating is sent.
//   - *CalculationError: the sentinel rating is sent so the peer is never left waiting.
//   - anything else (framing, decode): there is no decoded message to answer.
func Decide(o Outcome) (ResponsePayload, bool) {
	if o.Err == nil {
		return ResponsePayload{StarRating: o.StarRating}, true
	}

	var ce *CalculationError
	if errors.As(o.Err, &ce) {
		return ResponsePayload{StarRating: SentinelStarRating}, true
	}

	return ResponsePayload{}, false
}
