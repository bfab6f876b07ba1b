// Package generate produces tailored resume and cover-letter variants for a
// job posting, caching results by fingerprint so the same (job, candidate
// version) pair is never paid for twice.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jonathan/apply-agent/internal/types"
)

// DefaultModel is the Gemini model used for content generation.
const DefaultModel = "gemini-2.5-flash"

// Generator is the generation collaborator contract.
type Generator interface {
	// Generate produces tailored content for one job. Failures are returned
	// as *Error with a classified kind.
	Generate(ctx context.Context, job *types.JobPosting, profile *types.CandidateProfile) (*types.GeneratedContent, error)
	// Close releases any resources held by the generator.
	Close() error
}

// contentSchema validates the generator's JSON payload before it is accepted.
const contentSchema = `{
	"type": "object",
	"required": ["resume_text", "cover_letter"],
	"properties": {
		"resume_text": {"type": "string", "minLength": 1},
		"cover_letter": {"type": "string", "minLength": 1}
	}
}`

// contentPayload is the wire shape of a generation response.
type contentPayload struct {
	ResumeText  string `json:"resume_text"`
	CoverLetter string `json:"cover_letter"`
}

// GeminiGenerator implements Generator against the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	schema *gojsonschema.Schema
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(contentSchema))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to compile content schema: %w", err)
	}

	return &GeminiGenerator{client: client, model: model, schema: schema}, nil
}

// Generate calls the model in JSON mode and validates the payload against the
// content schema before accepting it.
func (g *GeminiGenerator) Generate(ctx context.Context, job *types.JobPosting, profile *types.CandidateProfile) (*types.GeneratedContent, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.3)
	model.ResponseMIMEType = "application/json"

	prompt := buildPrompt(job, profile)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, classifyAPIError(err)
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Message: "empty response", Cause: err}
	}
	text = cleanJSONBlock(text)

	result, err := g.schema.Validate(gojsonschema.NewStringLoader(text))
	if err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Message: "response is not valid JSON", Cause: err}
	}
	if !result.Valid() {
		var fields []string
		for _, desc := range result.Errors() {
			fields = append(fields, desc.String())
		}
		return nil, &Error{Kind: KindInvalidResponse, Message: "response failed schema validation: " + strings.Join(fields, "; ")}
	}

	var payload contentPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return &types.GeneratedContent{
		ResumeText:  payload.ResumeText,
		CoverLetter: payload.CoverLetter,
		Model:       g.model,
		CreatedAt:   time.Now(),
	}, nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// classifyAPIError maps transport failures onto the generation taxonomy.
func classifyAPIError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Message: "generation call timed out", Cause: err}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 503:
			return &Error{Kind: KindRateLimited, Message: "generation service rate limited", Cause: err}
		}
	}
	return &Error{Kind: KindInvalidResponse, Message: "generation call failed", Cause: err}
}

// extractText extracts text from a Gemini API response.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// cleanJSONBlock removes markdown code block wrappers from JSON.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
