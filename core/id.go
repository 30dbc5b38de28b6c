package core

import "github.com/google/uuid"

// NewID generates a unique identifier used to correlate tool calls with
// their results and runs with their log lines.
func NewID() string { return uuid.NewString() }
