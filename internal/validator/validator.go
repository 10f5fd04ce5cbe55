package validator

import (
	"context"
	"strings"
)

// ModelLister is the provider call the validator depends on.
type ModelLister interface {
	ListModels(ctx context.Context, key string) ([]string, error)
}

// Result reports whether a credential can reach the provider and which
// generation-capable models it unlocks. The credential itself is never
// echoed back.
type Result struct {
	Valid  bool     `json:"valid"`
	Models []string `json:"models,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Validate performs one list-models call as a pre-flight gate. Any
// transport or auth failure fails closed with the provider's error
// string; an empty credential never reaches the provider.
func Validate(ctx context.Context, lister ModelLister, credential string) Result {
	if strings.TrimSpace(credential) == "" {
		return Result{Valid: false, Error: "no API key supplied"}
	}

	ids, err := lister.ListModels(ctx, credential)
	if err != nil {
		return Result{Valid: false, Error: err.Error()}
	}

	generative := filterGenerative(ids)
	if len(generative) == 0 {
		return Result{Valid: false, Error: "no text generation models available for this API key"}
	}
	return Result{Valid: true, Models: generative}
}

// filterGenerative drops ids that are clearly not chat/generation
// models (embedding and moderation endpoints share the listing).
func filterGenerative(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		lower := strings.ToLower(id)
		if strings.Contains(lower, "embed") || strings.Contains(lower, "moderation") {
			continue
		}
		out = append(out, id)
	}
	return out
}
