package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
)

// IssueSeverity is the level of a quality-gate finding.
type IssueSeverity struct {
	level string
}

const (
	FailLevel = "fail"
	WarnLevel = "warn"
	InfoLevel = "info"
)

var validIssueLevels = map[string]int{
	FailLevel: 0,
	WarnLevel: 1,
	InfoLevel: 2,
}

// Predefined severities.
var (
	SeverityFail = IssueSeverity{level: FailLevel}
	SeverityWarn = IssueSeverity{level: WarnLevel}
	SeverityInfo = IssueSeverity{level: InfoLevel}
)

// NewIssueSeverity creates a new severity with validation.
func NewIssueSeverity(level string) (IssueSeverity, error) {
	if level == "" {
		return IssueSeverity{}, errors.New("invalid issue severity: cannot be empty")
	}
	if _, exists := validIssueLevels[level]; !exists {
		return IssueSeverity{}, fmt.Errorf("invalid issue severity: %s is not a valid level", level)
	}
	return IssueSeverity{level: level}, nil
}

// String returns the string representation of the severity.
func (s IssueSeverity) String() string {
	return s.level
}

// IsFail reports whether the finding fails the gate.
func (s IssueSeverity) IsFail() bool {
	return s.level == FailLevel
}

// Priority returns the numeric priority (0 = highest priority).
func (s IssueSeverity) Priority() int {
	return validIssueLevels[s.level]
}

// MarshalJSON renders the level string.
func (s IssueSeverity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.level)
}

// UnmarshalJSON parses and validates a level string.
func (s *IssueSeverity) UnmarshalJSON(data []byte) error {
	var level string
	if err := json.Unmarshal(data, &level); err != nil {
		return err
	}
	parsed, err := NewIssueSeverity(level)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
