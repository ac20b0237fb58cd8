package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"subtrack/pkg/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// maxStatementChars caps how much statement text is sent with the prompt.
const maxStatementChars = 50000

const extractionPrompt = `Extract the transactions and recurring subscriptions from this bank statement.

Known services (with cancel URLs):
- Netflix (netflix.com/cancelplan), Spotify (spotify.com/account), YouTube Premium, Hulu, Disney+, HBO Max, Amazon Prime, Apple TV+
- ChatGPT Plus (chat.openai.com/settings), Claude Pro (claude.ai/settings), GitHub Copilot (github.com/settings/copilot), Cursor, Midjourney
- Notion (notion.so/my-account), Dropbox, Adobe, Microsoft 365, 1Password, iCloud, Google One
- X Premium, Discord Nitro (discord.com/settings/subscriptions), LinkedIn Premium
- NYTimes, WSJ, Substack, Planet Fitness, Equinox, Peloton, ClassPass

RULES:
- List every transaction line with its date (YYYY-MM-DD), description and amount.
- A subscription is a merchant that charges a similar amount on a recurring schedule.
- Only report merchants that actually appear in the statement, never invent entries.
- "frequency" must be one of: monthly, yearly, weekly.
- "rationale" is one short sentence explaining why the charges look recurring.
- If a merchant is in the known-services list above, include its cancel URL, otherwise leave it empty.
- If there are no subscriptions, return an empty "subscriptions" array.
- Return ONLY JSON matching the requested schema, no markdown, no commentary.

Bank statement:
`

// ExtractionResult is the schema-validated payload returned by the model.
type ExtractionResult struct {
	Transactions  []TransactionData  `json:"transactions"`
	Subscriptions []SubscriptionData `json:"subscriptions"`
}

type TransactionData struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type SubscriptionData struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Frequency   string          `json:"frequency"`
	LastCharged string          `json:"last_charged"`
	Count       int             `json:"count"`
	CancelURL   string          `json:"cancel_url"`
	Rationale   string          `json:"rationale"`
}

// LLMService sends statement text to the Gemini API and decodes the
// structured extraction response. The model's output is treated as an
// opaque black box, its correctness is not verified here.
type LLMService struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewLLMService(ctx context.Context, cfg *config.Gemini, logger *zap.Logger) (*LLMService, error) {
	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, extraction requests will fail")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logger.Info("Using Gemini model", zap.String("model", cfg.Model))
	return &LLMService{
		client: client,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// ExtractStatement sends the statement text with the fixed extraction prompt
// and returns the decoded result. A malformed response fails the request,
// there is no repair or retry beyond what the API itself provides.
func (s *LLMService) ExtractStatement(ctx context.Context, statementText string) (*ExtractionResult, error) {
	statementText = strings.TrimSpace(statementText)
	if len(statementText) < 10 {
		s.logger.Warn("Statement text is too short, skipping extraction", zap.Int("length", len(statementText)))
		return &ExtractionResult{}, nil
	}
	if len(statementText) > maxStatementChars {
		statementText = statementText[:maxStatementChars]
	}

	contents := genai.Text(extractionPrompt + statementText)
	genConfig := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		MaxOutputTokens:  8000,
		ResponseMIMEType: "application/json",
		ResponseSchema:   extractionSchema(),
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to generate extraction: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	// Structured output should already be bare JSON, but clean up fences and
	// surrounding prose in case the model ignored instructions.
	clean := cleanModelJSON(rawText)

	var result ExtractionResult
	if err := json.Unmarshal([]byte(clean), &result); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	s.logger.Info("Statement extraction completed",
		zap.Int("transactions", len(result.Transactions)),
		zap.Int("subscriptions", len(result.Subscriptions)),
	)
	return &result, nil
}

// extractionSchema describes the response shape requested from the model.
func extractionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"transactions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"date":        {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
						"amount":      {Type: genai.TypeNumber},
					},
					Required: []string{"date", "description", "amount"},
				},
			},
			"subscriptions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":         {Type: genai.TypeString},
						"amount":       {Type: genai.TypeNumber},
						"frequency":    {Type: genai.TypeString},
						"last_charged": {Type: genai.TypeString},
						"count":        {Type: genai.TypeInteger},
						"cancel_url":   {Type: genai.TypeString},
						"rationale":    {Type: genai.TypeString},
					},
					Required: []string{"name", "amount", "frequency"},
				},
			},
		},
		Required: []string{"transactions", "subscriptions"},
	}
}

// cleanModelJSON strips markdown fences and surrounding prose, keeping the
// first top-level JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
