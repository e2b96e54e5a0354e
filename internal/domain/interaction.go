package domain

import "time"

// Interaction is a single recorded request/response exchange, created once per
// turn by the host generation layer and read (never mutated) by every
// analyzer.
type Interaction struct {
	// Timestamp is when the exchange completed.
	Timestamp time.Time `json:"timestamp"`

	// Input is the user's request text.
	Input string `json:"input"`

	// Output is the model's response text.
	Output string `json:"output"`

	// ResponseTime is how long generation took, in seconds.
	ResponseTime float64 `json:"response_time"`

	// Satisfaction is an optional user rating in [0,1]; nil when not provided.
	Satisfaction *float64 `json:"satisfaction,omitempty"`

	// Metadata carries open user/demographic attributes (e.g. "language").
	Metadata map[string]any `json:"metadata,omitempty"`

	// Context carries open per-turn context supplied by the host layer.
	Context map[string]any `json:"context,omitempty"`

	// Error is the failure message when the turn errored, empty otherwise.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the turn ended in an error.
func (i *Interaction) Failed() bool { return i.Error != "" }

// MetadataString returns the metadata value for key rendered as a string, or
// fallback when the key is absent. Non-string primitives are not coerced;
// grouping only makes sense over discrete labels.
func (i *Interaction) MetadataString(key, fallback string) string {
	if i.Metadata == nil {
		return fallback
	}
	if v, ok := i.Metadata[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}
