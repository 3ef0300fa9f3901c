package runware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/basel-ax/bagtrainer/internal/domain"
)

// Client represents the Runware task API client
type Client struct {
	http     *resty.Client
	endpoint string
	apiKey   string
	encoder  Encoder
}

// NewClient creates a new client posting to endpoint. The resty client
// never retries; timeout bounds each request.
func NewClient(endpoint, apiKey, encoding string, timeout time.Duration, logger *zap.SugaredLogger) (*Client, error) {
	encoder, err := NewEncoder(encoding, apiKey)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if logger != nil {
		httpClient.SetLogger(logger)
	}

	return &Client{
		http:     httpClient,
		endpoint: endpoint,
		apiKey:   apiKey,
		encoder:  encoder,
	}, nil
}

var _ domain.Adapter = (*Client)(nil)

// SubmitTraining uploads the training images for req.ModelName
func (c *Client) SubmitTraining(ctx context.Context, req domain.TrainingRequest) domain.Outcome {
	if err := c.precheck(req.Validate()); err != nil {
		return domain.Failure(err)
	}

	payload, err := c.encoder.EncodeTraining(req)
	if err != nil {
		return domain.Failure(domain.NewValidationError(fmt.Sprintf("failed to encode training request: %v", err)))
	}

	statusCode, body, err := c.post(ctx, payload)
	if err != nil {
		return domain.Failure(domain.NewNetworkError(err))
	}
	return NormalizeTraining(statusCode, body, req.ModelName)
}

// SubmitGeneration requests one image for req.Prompt
func (c *Client) SubmitGeneration(ctx context.Context, req domain.GenerationRequest) domain.Outcome {
	if err := c.precheck(req.Validate()); err != nil {
		return domain.Failure(err)
	}

	payload, err := c.encoder.EncodeGeneration(req)
	if err != nil {
		return domain.Failure(domain.NewValidationError(fmt.Sprintf("failed to encode generation request: %v", err)))
	}

	statusCode, body, err := c.post(ctx, payload)
	if err != nil {
		return domain.Failure(domain.NewNetworkError(err))
	}
	return NormalizeGeneration(statusCode, body)
}

func (c *Client) precheck(validationErr error) *domain.Error {
	if c.apiKey == "" {
		return domain.NewValidationError("API key is not configured")
	}
	if validationErr != nil {
		return domain.ErrorFrom(validationErr, domain.KindValidation)
	}
	return nil
}

func (c *Client) post(ctx context.Context, p *Payload) (int, []byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", p.ContentType).
		SetHeaders(p.Header).
		SetBody(p.Body).
		Post(c.endpoint)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	return res.StatusCode(), res.Body(), nil
}
