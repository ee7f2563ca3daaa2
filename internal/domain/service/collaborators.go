package service

import (
	"context"

	"AgriPrice/internal/domain/models"
)

// Oracle proposes a draft filter (or clarification questions) for free text.
// Its output is untrusted and always re-validated.
type Oracle interface {
	Parse(ctx context.Context, question string, dims models.Dimensions) (*models.OracleOutput, error)
}

// Narrator renders text from computed results. It must not modify its input.
type Narrator interface {
	Narrate(ctx context.Context, in models.NarrativeInput) (string, error)
}
