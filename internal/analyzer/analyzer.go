// Package analyzer answers questions about CSV data with a Gemini model.
//
// Each call is stateless: one prompt carrying the whole CSV and the question
// goes to a fixed model, and the trimmed answer text comes back. There is no
// streaming, no conversation history and no retry.
package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetchat/internal/logging"
	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Advisory answers returned instead of calling or failing.
const (
	NoDataAnswer        = "No data provided. Please paste your sheet data (CSV) first."
	EmptyResponseAnswer = "I received an empty response. I might not have enough information or the query was unclear."
)

// Generator is the subset of *genai.Models the analyzer uses.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Analyzer sends analysis prompts to a generative model. An Analyzer built
// without credentials is valid but unconfigured: every Analyze call fails
// with ErrClientNotConfigured.
type Analyzer struct {
	model      string
	gen        Generator
	httpClient *http.Client
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(a *Analyzer) {
		if model != "" {
			a.model = model
		}
	}
}

// WithHTTPClient sets the HTTP client the genai client uses.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Analyzer) { a.httpClient = c }
}

// New creates an Analyzer backed by the Gemini API. An empty apiKey yields an
// unconfigured Analyzer and no error.
func New(ctx context.Context, apiKey string, opts ...Option) (*Analyzer, error) {
	a := &Analyzer{model: DefaultModel}
	for _, opt := range opts {
		opt(a)
	}

	if apiKey == "" {
		return a, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: a.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	a.gen = client.Models
	return a, nil
}

// NewWithGenerator creates a configured Analyzer around gen.
func NewWithGenerator(gen Generator, opts ...Option) *Analyzer {
	a := &Analyzer{model: DefaultModel, gen: gen}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Configured reports whether the Analyzer can reach a model.
func (a *Analyzer) Configured() bool {
	return a != nil && a.gen != nil
}

// Model returns the model identifier requests are sent to.
func (a *Analyzer) Model() string {
	return a.model
}

// Analyze answers question from csvText.
//
// Whitespace-only csvText returns NoDataAnswer without calling the model.
// A response with no text returns EmptyResponseAnswer. Failures are
// classified as ErrInvalidCredential, ErrQuotaExceeded or ErrCommunication.
func (a *Analyzer) Analyze(ctx context.Context, csvText, question string) (string, error) {
	if !a.Configured() {
		return "", ErrClientNotConfigured
	}
	if strings.TrimSpace(csvText) == "" {
		return NoDataAnswer, nil
	}

	logger := logging.WithFields(ctx, "model", a.model)
	start := time.Now()

	resp, err := a.gen.GenerateContent(ctx, a.model, genai.Text(BuildPrompt(csvText, question)), nil)
	if err != nil {
		classified := classify(err)
		logger.Error("gemini request failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return "", classified
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Text())
	}
	logger.Info("gemini response received",
		"csv_bytes", len(csvText),
		"answer_bytes", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if text == "" {
		return EmptyResponseAnswer, nil
	}
	return text, nil
}
