package domain

import "fmt"

const (
	// Recommended size of a training set. Counts outside the range are
	// accepted but reported back to the user.
	MinRecommendedImages = 10
	MaxRecommendedImages = 30
)

// TrainingRequest represents the parameters for a LoRA training submission
type TrainingRequest struct {
	ImageType ImageType
	ModelName string
	Images    []Image
}

// Validate checks the request before anything is sent to the vendor
func (r TrainingRequest) Validate() error {
	if len(r.Images) == 0 {
		return NewValidationError("no images selected for training")
	}
	if !r.ImageType.Valid() {
		return NewValidationError(fmt.Sprintf("unknown image type %q", r.ImageType))
	}
	if r.ModelName == "" {
		return NewValidationError("model name is required")
	}
	for i, img := range r.Images {
		if len(img.Data) == 0 {
			return NewValidationError(fmt.Sprintf("image %d (%s) is empty", i+1, img.Filename))
		}
	}
	return nil
}

// SizeNote returns a warning when the image count is outside the
// recommended range, or an empty string otherwise.
func (r TrainingRequest) SizeNote() string {
	n := len(r.Images)
	switch {
	case n < MinRecommendedImages:
		return fmt.Sprintf("only %d images uploaded, %d-%d are recommended", n, MinRecommendedImages, MaxRecommendedImages)
	case n > MaxRecommendedImages:
		return fmt.Sprintf("%d images uploaded, %d-%d are recommended", n, MinRecommendedImages, MaxRecommendedImages)
	}
	return ""
}
