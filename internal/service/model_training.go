package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/basel-ax/bagtrainer/internal/config"
	"github.com/basel-ax/bagtrainer/internal/domain"
	"github.com/basel-ax/bagtrainer/internal/infrastructure/runware"
)

// ModelTrainingService fills in configured defaults and forwards requests
// to the vendor adapter
type ModelTrainingService struct {
	adapter domain.Adapter
	config  *config.Config
	logger  *zap.SugaredLogger
}

// NewModelTrainingService creates a service backed by the Runware client
func NewModelTrainingService(cfg *config.Config, logger *zap.SugaredLogger) (*ModelTrainingService, error) {
	client, err := runware.NewClient(cfg.APIURL, cfg.APIKey, cfg.Encoding, cfg.RequestTimeout, logger)
	if err != nil {
		return nil, err
	}
	return NewWithAdapter(cfg, client, logger), nil
}

// NewWithAdapter creates a service backed by the given adapter
func NewWithAdapter(cfg *config.Config, adapter domain.Adapter, logger *zap.SugaredLogger) *ModelTrainingService {
	return &ModelTrainingService{
		adapter: adapter,
		config:  cfg,
		logger:  logger,
	}
}

// SubmitTraining sends the training set to the vendor
func (s *ModelTrainingService) SubmitTraining(ctx context.Context, req domain.TrainingRequest) domain.Outcome {
	if req.ModelName == "" {
		req.ModelName = s.config.DefaultModelName
	}
	if req.ImageType == "" {
		req.ImageType, _ = domain.ParseImageType(s.config.DefaultImageType)
	}

	s.logger.Infow("Submitting training request",
		"model", req.ModelName,
		"imageType", req.ImageType,
		"images", len(req.Images),
	)

	note := req.SizeNote()
	if note != "" && len(req.Images) > 0 {
		s.logger.Warnw("Training set size outside recommended range", "model", req.ModelName, "note", note)
	}

	out := s.adapter.SubmitTraining(ctx, req)
	if !out.OK() {
		s.logFailure("Training request failed", req.ModelName, out)
		return out
	}

	if note != "" {
		out.Message += " (" + note + ")"
	}
	s.logger.Infow("Training request accepted", "model", req.ModelName, "modelId", out.ModelID)
	return out
}

// SubmitGeneration asks the vendor for an image from req.Prompt
func (s *ModelTrainingService) SubmitGeneration(ctx context.Context, req domain.GenerationRequest) domain.Outcome {
	if req.ModelName == "" {
		req.ModelName = s.config.DefaultModelName
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if original := req.Prompt; utf8.RuneCountInString(original) > s.config.PromptMaxLength {
		req.Prompt = truncatePrompt(original, s.config.PromptMaxLength)
		s.logger.Warnw("Prompt truncated",
			"from", utf8.RuneCountInString(original),
			"to", s.config.PromptMaxLength,
		)
	}

	s.logger.Infow("Submitting generation request", "model", req.ModelName, "prompt", req.Prompt)

	out := s.adapter.SubmitGeneration(ctx, req)
	if !out.OK() {
		s.logFailure("Generation request failed", req.ModelName, out)
		return out
	}

	s.logger.Infow("Image generated", "model", req.ModelName, "url", out.ImageURL)
	return out
}

func (s *ModelTrainingService) logFailure(msg, model string, out domain.Outcome) {
	s.logger.Errorw(msg,
		"model", model,
		"kind", out.Err.Kind.String(),
		"status", out.Err.StatusCode,
		"error", out.Message,
	)
}

// truncatePrompt safely truncates a string to the specified length while preserving UTF-8 characters
func truncatePrompt(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}

	var size, n int
	for i := 0; i < length && n < len(s); i++ {
		_, size = utf8.DecodeRuneInString(s[n:])
		n += size
	}

	return s[:n]
}
