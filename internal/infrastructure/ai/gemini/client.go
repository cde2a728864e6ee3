// Package gemini provides Google Gemini integration for recipe text,
// dish photos and image edits
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/infrastructure/monitoring"
	"github.com/alchemorsel/chefnano/internal/ports/outbound"
	apperrors "github.com/alchemorsel/chefnano/pkg/errors"
)

const providerName = "gemini"

// Config holds the Gemini gateway settings
type Config struct {
	TextModel  string
	ImageModel string
	// BaseURL overrides the public endpoint, e.g. for a proxy or tests.
	BaseURL string
	Locale  kitchen.Locale
}

// KeySource returns the API key. It is consulted on every request.
type KeySource func() string

// Client implements outbound.KitchenAI on top of the Gemini API
type Client struct {
	config     Config
	apiKey     KeySource
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *monitoring.MetricsCollector
	tracing    *monitoring.TracingProvider
}

var _ outbound.KitchenAI = (*Client)(nil)

// NewClient creates a new Gemini gateway
func NewClient(
	config Config,
	apiKey KeySource,
	httpClient *http.Client,
	logger *zap.Logger,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.TracingProvider,
) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tracing == nil {
		tracing = monitoring.NewNoopTracingProvider()
	}
	return &Client{
		config:     config,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.Named("gemini"),
		metrics:    metrics,
		tracing:    tracing,
	}
}

// RequestRecipe asks the text model for a recipe built from the ingredients.
func (c *Client) RequestRecipe(ctx context.Context, ingredients string) (kitchen.Recipe, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   recipeSchema,
	}

	resp, err := c.generate(ctx, "recipe", c.config.TextModel, genai.Text(recipePrompt(c.config.Locale, ingredients)), config)
	if err != nil {
		return kitchen.Recipe{}, err
	}

	recipe, repaired := parseRecipe(resp.Text())
	if repaired {
		c.logger.Warn("Recipe response was not valid JSON",
			zap.Bool("empty_result", recipe.IsEmpty()),
		)
	}
	return recipe, nil
}

// RequestFoodImage renders a square photo of the dish.
func (c *Client) RequestFoodImage(ctx context.Context, dishTitle string) (kitchen.DataURI, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(photoPrompt(dishTitle)),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: "1:1"},
	}

	resp, err := c.generate(ctx, "image", c.config.ImageModel, contents, config)
	if err != nil {
		return "", err
	}
	return firstImage(resp), nil
}

// RequestImageEdit sends the current image with a free-text instruction.
func (c *Client) RequestImageEdit(ctx context.Context, source kitchen.DataURI, instruction string) (kitchen.DataURI, error) {
	data, err := source.Bytes()
	if err != nil {
		return "", fmt.Errorf("decode source image: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, "image/png"),
			genai.NewPartFromText(instruction),
		}, genai.RoleUser),
	}

	resp, err := c.generate(ctx, "edit", c.config.ImageModel, contents, nil)
	if err != nil {
		return "", err
	}
	return firstImage(resp), nil
}

// generate performs one GenerateContent call with tracing, metrics and
// logging around it. A fresh SDK client is built per call so the key is
// read at request time.
func (c *Client) generate(
	ctx context.Context,
	operation, model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	ctx, span := c.tracing.StartAISpan(ctx, providerName, model, operation)
	defer span.End()

	start := time.Now()
	resp, err := c.call(ctx, model, contents, config)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		monitoring.RecordError(span, err)
	}
	if c.metrics != nil {
		c.metrics.AIRequest(operation, model, status, duration)
	}

	if err != nil {
		c.logger.Error("Gemini request failed",
			zap.String("operation", operation),
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, apperrors.NewExternalServiceError(providerName, err)
	}

	c.logger.Debug("Gemini request completed",
		zap.String("operation", operation),
		zap.String("model", model),
		zap.Duration("duration", duration),
	)
	return resp, nil
}

func (c *Client) call(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	client, err := c.newSDKClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Models.GenerateContent(ctx, model, contents, config)
}

func (c *Client) newSDKClient(ctx context.Context) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     c.apiKey(),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.config.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// firstImage returns the first inline payload of the first candidate.
func firstImage(resp *genai.GenerateContentResponse) kitchen.DataURI {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return kitchen.NewPNGDataURI(part.InlineData.Data)
		}
	}
	return ""
}
