package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pm33/abtest/internal/domain"
	"github.com/pm33/abtest/internal/ports"
)

// findTest resolves a test reference that may be either an ID or a name.
func findTest(ctx context.Context, repo ports.TestRepository, ref string) (*domain.Test, error) {
	test, err := repo.GetByID(ctx, ref)
	if err != nil {
		return nil, err
	}
	if test == nil {
		test, err = repo.GetByName(ctx, ref)
		if err != nil {
			return nil, err
		}
	}
	if test == nil {
		return nil, fmt.Errorf("test %q not found", ref)
	}
	return test, nil
}

// parseVariantSpec parses a --variant flag value of the form
// "id=weight" or "id=weight:payload". The payload may contain colons.
func parseVariantSpec(spec string) (domain.Variant, error) {
	idPart, rest, ok := strings.Cut(spec, "=")
	if !ok || idPart == "" {
		return domain.Variant{}, fmt.Errorf("invalid variant %q, expected id=weight[:payload]", spec)
	}

	weightPart, payload, _ := strings.Cut(rest, ":")
	weight, err := strconv.ParseFloat(weightPart, 64)
	if err != nil {
		return domain.Variant{}, fmt.Errorf("invalid weight in variant %q: %w", spec, err)
	}

	return domain.Variant{ID: idPart, Weight: weight, Payload: payload}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
