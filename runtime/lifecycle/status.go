package lifecycle

import (
	"fmt"
	"strings"
)

// Status describes the lifecycle phase of a single operation.
type Status uint8

const (
	// StatusIdle is the initial phase and the phase after an explicit reset.
	StatusIdle Status = iota
	// StatusLoading marks an operation whose remote call is in flight.
	StatusLoading
	// StatusSucceeded marks an operation that resolved with a payload.
	StatusSucceeded
	// StatusFailed marks an operation that resolved with an error message.
	StatusFailed
)

var statusNames = [...]string{
	StatusIdle:      "idle",
	StatusLoading:   "loading",
	StatusSucceeded: "succeeded",
	StatusFailed:    "failed",
}

// String returns the lower-case wire name of the status.
func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Terminal reports whether the status is succeeded or failed.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Valid reports whether s is one of the four declared phases.
func (s Status) Valid() bool {
	return int(s) < len(statusNames)
}

// ParseStatus converts a wire name into a Status.
func ParseStatus(raw string) (Status, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for idx, candidate := range statusNames {
		if candidate == name {
			return Status(idx), nil
		}
	}
	return StatusIdle, fmt.Errorf("unknown status %q", raw)
}

// MarshalText renders the status name.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
