package domain

import "time"

// Test is an A/B test configuration: a named set of weighted variants.
type Test struct {
	ID          string
	Name        string
	Description *string
	Variants    []Variant
	IsActive    bool
	CreatedAt   time.Time
}

// Variant is one candidate version of content in a test. Weight controls
// selection probability proportionally; Payload is an opaque content key
// the caller resolves to renderable content.
type Variant struct {
	ID      string
	Weight  float64
	Payload string
}

// TotalWeight returns the sum of all variant weights.
func (t *Test) TotalWeight() float64 {
	var total float64
	for _, v := range t.Variants {
		total += v.Weight
	}
	return total
}

// VariantByID returns the variant with the given id, or nil if absent.
func (t *Test) VariantByID(id string) *Variant {
	for i := range t.Variants {
		if t.Variants[i].ID == id {
			return &t.Variants[i]
		}
	}
	return nil
}

// Validate checks that the test can be used for variant resolution:
// at least one variant, no negative weights, positive total weight,
// and variant ids unique within the test.
func (t *Test) Validate() error {
	if t.ID == "" {
		return &ConfigError{TestID: t.ID, Reason: "test id is empty"}
	}
	if len(t.Variants) == 0 {
		return &ConfigError{TestID: t.ID, Reason: "no variants defined"}
	}
	seen := make(map[string]struct{}, len(t.Variants))
	for _, v := range t.Variants {
		if v.ID == "" {
			return &ConfigError{TestID: t.ID, Reason: "variant id is empty"}
		}
		if _, dup := seen[v.ID]; dup {
			return &ConfigError{TestID: t.ID, Reason: "duplicate variant id: " + v.ID}
		}
		seen[v.ID] = struct{}{}
		if v.Weight < 0 {
			return &ConfigError{TestID: t.ID, Reason: "negative weight on variant: " + v.ID}
		}
	}
	if t.TotalWeight() <= 0 {
		return &ConfigError{TestID: t.ID, Reason: "total variant weight is not positive"}
	}
	return nil
}
