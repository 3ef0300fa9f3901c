package domain

import (
	"context"
	"strings"
)

// GenerationRequest represents the parameters for image generation
type GenerationRequest struct {
	ModelName string
	Prompt    string
}

// Validate checks the request before anything is sent to the vendor
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return NewValidationError("prompt is required")
	}
	if r.ModelName == "" {
		return NewValidationError("model name is required")
	}
	return nil
}

// Adapter talks to the image-generation vendor. Implementations never
// return Go errors; every failure is reported inside the Outcome.
type Adapter interface {
	// SubmitTraining uploads a training set for the named model
	SubmitTraining(ctx context.Context, req TrainingRequest) Outcome

	// SubmitGeneration requests a single image from a prompt
	SubmitGeneration(ctx context.Context, req GenerationRequest) Outcome
}
