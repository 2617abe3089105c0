package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/doubtclear-backend/internal/apierr"
	"github.com/yungbote/doubtclear-backend/internal/logger"
)

// GenerativeClient is the contract the escalation core holds against the
// generative-answer provider. It must fail fast and distinguishably when
// unconfigured; empty content is never returned as if it were a real answer.
type GenerativeClient interface {
	IsConfigured() bool
	GenerateAnswer(ctx context.Context, title, content, courseName string) (string, error)
	StreamAnswer(ctx context.Context, title, content, courseName string, onChunk func(string)) error
	ImproveQuestion(ctx context.Context, title, content, courseName string) (*QuestionImprovement, error)
	SuggestSimilarQuestions(ctx context.Context, title, courseName string) ([]SimilarQuestion, error)
	AnalyzeAnswerQuality(ctx context.Context, question, answer string) (*AnswerQualityReport, error)
}

type QuestionImprovement struct {
	ImprovedTitle   string   `json:"improvedTitle"`
	Suggestions     []string `json:"suggestions"`
	MissingContext  []string `json:"missingContext"`
	RelatedConcepts []string `json:"relatedConcepts"`
}

type SimilarQuestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type AnswerQualityReport struct {
	Clarity      int      `json:"clarity"`
	Completeness int      `json:"completeness"`
	Accuracy     int      `json:"accuracy"`
	Suggestions  []string `json:"suggestions"`
	Strengths    []string `json:"strengths"`
}

type geminiClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxRetries int
}

// NewGeminiClient never fails on a missing API key: the client reports
// unconfigured and every call returns apierr.ErrNotConfigured, so AI features
// degrade instead of taking the process down.
func NewGeminiClient(log *logger.Logger) GenerativeClient {
	apiKey := os.Getenv("GEMINI_API_KEY")

	baseURL := os.Getenv("GEMINI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-1.5-flash"
	}

	timeoutSec := 90
	if v := os.Getenv("GEMINI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 2
	if v := os.Getenv("GEMINI_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	clientLog := log.With("service", "GeminiClient")
	if apiKey == "" {
		clientLog.Warn("GEMINI_API_KEY not set, AI fallback generation disabled")
	}

	return &geminiClient{
		log:        clientLog,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}
}

func (c *geminiClient) IsConfigured() bool {
	return c.apiKey != ""
}

type geminiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *geminiHTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	if code >= 500 && code <= 599 {
		return true
	}
	return false
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *geminiHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	// Transport-level failures (connection refused, reset) are worth one more
	// sweep-scoped attempt.
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func jitterSleep(base time.Duration) time.Duration {
	// +/- 20%
	if base <= 0 {
		return 0
	}
	j := 0.2
	delta := base.Seconds() * j
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (r *generateContentResponse) text() string {
	var sb strings.Builder
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func (c *geminiClient) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &geminiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *geminiClient) do(ctx context.Context, path string, body any, out any) error {
	if !c.IsConfigured() {
		return apierr.ErrNotConfigured
	}

	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("gemini decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !isRetryableErr(err) {
			return fmt.Errorf("%w: %v", apierr.ErrUpstreamUnavailable, err)
		}
		if attempt == c.maxRetries {
			return fmt.Errorf("%w: %v", apierr.ErrUpstreamUnavailable, err)
		}

		sleepFor := backoff
		if resp != nil {
			ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
			if ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
					sleepFor = time.Duration(secs) * time.Second
				}
			}
		}
		if sleepFor > 10*time.Second {
			sleepFor = 10 * time.Second
		}
		sleepFor = jitterSleep(sleepFor)

		c.log.Warn("Gemini request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func answerPrompt(title, content, courseName string) string {
	return fmt.Sprintf(`As an expert tutor for university students, provide a comprehensive answer to this question:

Course: %s
Question: %s
Details: %s

Please provide:
- A clear, step-by-step explanation
- Relevant examples when helpful
- Key concepts and formulas if applicable
- Additional resources or topics to explore

Keep your response educational and encourage further learning. Use markdown formatting for better readability.`, courseName, title, content)
}

func (c *geminiClient) GenerateAnswer(ctx context.Context, title, content, courseName string) (string, error) {
	req := generateContentRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: answerPrompt(title, content, courseName)}}},
		},
	}
	var resp generateContentResponse
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)
	if err := c.do(ctx, path, req, &resp); err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.text())
	if text == "" {
		return "", fmt.Errorf("%w: empty generation result", apierr.ErrUpstreamUnavailable)
	}
	return text, nil
}

func (c *geminiClient) StreamAnswer(ctx context.Context, title, content, courseName string, onChunk func(string)) error {
	if !c.IsConfigured() {
		return apierr.ErrNotConfigured
	}

	req := generateContentRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: answerPrompt(title, content, courseName)}}},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return err
	}

	path := fmt.Sprintf("/v1beta/models/%s:streamGenerateContent?alt=sse", c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %v", apierr.ErrUpstreamUnavailable, &geminiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)})
	}

	return streamSSE(resp.Body, func(data string) error {
		var chunk generateContentResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Tolerate keepalive / non-JSON frames.
			return nil
		}
		if text := chunk.text(); text != "" && onChunk != nil {
			onChunk(text)
		}
		return nil
	})
}

func (c *geminiClient) generateJSON(ctx context.Context, prompt string, out any) (string, error) {
	req := generateContentRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
	}
	var resp generateContentResponse
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)
	if err := c.do(ctx, path, req, &resp); err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.text())
	// Models sometimes fence the JSON; strip before parsing.
	trimmed := strings.TrimPrefix(text, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), out); err != nil {
		return text, err
	}
	return text, nil
}

func (c *geminiClient) ImproveQuestion(ctx context.Context, title, content, courseName string) (*QuestionImprovement, error) {
	prompt := fmt.Sprintf(`As an AI tutor for university students, help improve this question for better clarity and responses:

Course: %s
Title: %s
Content: %s

Please provide:
1. A clearer, more specific title if needed
2. Suggestions to improve the question content
3. Missing context that would help answerers
4. Key concepts this question relates to

Format your response as JSON with these keys: improvedTitle, suggestions, missingContext, relatedConcepts`, courseName, title, content)

	var improvement QuestionImprovement
	raw, err := c.generateJSON(ctx, prompt, &improvement)
	if err != nil {
		if raw == "" {
			return nil, err
		}
		// Parse failure: degrade to the raw text as a single suggestion.
		return &QuestionImprovement{
			ImprovedTitle: title,
			Suggestions:   []string{raw},
		}, nil
	}
	return &improvement, nil
}

func (c *geminiClient) SuggestSimilarQuestions(ctx context.Context, title, courseName string) ([]SimilarQuestion, error) {
	prompt := fmt.Sprintf(`Based on this question from a %s course: "%s"

Generate 5 related questions that students might also ask. Make them specific and educational.

Format as JSON array with objects having 'title' and 'description' fields.`, courseName, title)

	var suggestions []SimilarQuestion
	if _, err := c.generateJSON(ctx, prompt, &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (c *geminiClient) AnalyzeAnswerQuality(ctx context.Context, question, answer string) (*AnswerQualityReport, error) {
	prompt := fmt.Sprintf(`Analyze this answer for quality and helpfulness:

Question: %s
Answer: %s

Provide feedback as JSON with:
- clarity: number (1-10)
- completeness: number (1-10)
- accuracy: number (1-10)
- suggestions: array of improvement suggestions
- strengths: array of what the answer does well`, question, answer)

	var report AnswerQualityReport
	if _, err := c.generateJSON(ctx, prompt, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
