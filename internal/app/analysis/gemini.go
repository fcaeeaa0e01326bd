package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"flirto/internal/app/store"
	"flirto/internal/pkg/logx"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

// GeminiClient asks the Gemini API to analyze a conversation. Responses are
// requested as a strict JSON object matching Result's analysis fields.
type GeminiClient struct {
	apiKey string
	http   *http.Client
	logger zerolog.Logger
}

// NewGeminiClient returns a client authenticating with apiKey.
func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logx.Logger().With().Str("component", "GeminiClient").Logger(),
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Analyze sends the conversation to Gemini and parses the JSON verdict.
func (g *GeminiClient) Analyze(ctx context.Context, history []store.Message) (Result, error) {
	var convo strings.Builder
	for _, m := range history {
		convo.WriteString(m.Username)
		convo.WriteString(": ")
		convo.WriteString(m.Body)
		convo.WriteByte('\n')
	}

	prompt := "Analyze this dating chat conversation. Reply with only a JSON object " +
		`with keys "sentiment" ("positive"|"negative"|"neutral"), "interestLevel" ` +
		`(integer 0-100), "topics" (array of strings), "language" (ISO 639-3 code), ` +
		`and "suggestions" (array of up to 3 short strings).` + "\n\nConversation:\n" + convo.String()

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, geminiEndpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, string(data))
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return Result{}, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("gemini returned no candidates")
	}

	return parseVerdict(gr.Candidates[0].Content.Parts[0].Text)
}

// parseVerdict extracts the JSON object from the model text, tolerating
// markdown code fences around it.
func parseVerdict(text string) (Result, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in gemini reply")
	}

	var verdict struct {
		Sentiment     string   `json:"sentiment"`
		InterestLevel int      `json:"interestLevel"`
		Topics        []string `json:"topics"`
		Language      string   `json:"language"`
		Suggestions   []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &verdict); err != nil {
		return Result{}, fmt.Errorf("parse gemini verdict: %w", err)
	}

	switch verdict.Sentiment {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
	default:
		verdict.Sentiment = SentimentNeutral
	}
	if verdict.InterestLevel < 0 {
		verdict.InterestLevel = 0
	}
	if verdict.InterestLevel > 100 {
		verdict.InterestLevel = 100
	}

	return Result{
		Sentiment:     verdict.Sentiment,
		InterestLevel: verdict.InterestLevel,
		Topics:        verdict.Topics,
		Language:      verdict.Language,
		Suggestions:   verdict.Suggestions,
	}, nil
}

// Service tries the remote analyzer first and falls back to the local
// keyword analyzer when the remote one errors.
type Service struct {
	primary  Analyzer
	fallback Analyzer
	logger   zerolog.Logger
}

// NewService composes a primary analyzer with a local fallback.
func NewService(primary, fallback Analyzer) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		logger:   logx.Logger().With().Str("component", "AnalysisService").Logger(),
	}
}

// Analyze implements Analyzer.
func (s *Service) Analyze(ctx context.Context, history []store.Message) (Result, error) {
	result, err := s.primary.Analyze(ctx, history)
	if err == nil {
		return result, nil
	}

	s.logger.Warn().Err(err).Msg("Primary analyzer failed, using local fallback.")
	return s.fallback.Analyze(ctx, history)
}
