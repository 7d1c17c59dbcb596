package domain

import "time"

// Assignment records which variant a visitor was given for a test.
// One record exists per (test, visitor) pair; it is created on first
// resolution and only overwritten when the stored variant disappears
// from the test configuration.
type Assignment struct {
	TestID     string
	VisitorID  string
	VariantID  string
	AssignedAt time.Time
}
