package domain

import "fmt"

// ConfigError reports an unusable test configuration. It is raised at
// resolution time and is never masked by a silent default: callers decide
// what fallback content to render.
type ConfigError struct {
	TestID string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.TestID == "" {
		return fmt.Sprintf("invalid test configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid test configuration %q: %s", e.TestID, e.Reason)
}

// NotFoundError reports a missing entity by kind and id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}
