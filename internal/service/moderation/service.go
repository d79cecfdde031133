package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"

	"github.com/blunt-app/blunt/internal/metrics"
	"github.com/blunt-app/blunt/internal/model"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-3-flash-preview"
	verdictUnsafe  = "VIOLATION"
)

const policyPrompt = `You are a content moderation system for an app called 'Blunt'.

Your task is to analyze the following text and determine if it violates our safety policy.

Policy Violations include:
1. Threats of violence.
2. Obvious hate speech.
3. Illegal doxxing (sharing private addresses, phone numbers, etc).
4. Explicit self-harm encouragement.

Text to analyze: "%s"

Respond with strictly one word: "SAFE" or "VIOLATION".`

var errMissingAPIKey = errors.New("moderation api key is not configured")

type Result struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	RPS        float64
	HTTPClient *http.Client
}

type service struct {
	cfg     Config
	limiter *rate.Limiter
}

func New(cfg Config) *service {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &service{cfg: cfg, limiter: rate.NewLimiter(limit, 1)}
}

// Moderate classifies text against the content policy. Any failure to get a
// verdict lets the text through.
func (s *service) Moderate(ctx context.Context, text string) Result {
	verdict, err := s.classify(ctx, text)
	if err != nil {
		if errors.Is(err, errMissingAPIKey) {
			log.Warn("moderation api key is missing, skipping moderation")
			metrics.Moderation.WithLabelValues("skipped").Inc()
		} else {
			log.Warnf("moderation failed, allowing content: %v", err)
			metrics.Moderation.WithLabelValues("fail_open").Inc()
		}
		return Result{Safe: true}
	}

	if verdict == verdictUnsafe {
		metrics.Moderation.WithLabelValues("violation").Inc()
		return Result{Safe: false, Reason: model.ModerationViolationReason}
	}
	metrics.Moderation.WithLabelValues("safe").Inc()
	return Result{Safe: true}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (s *service) classify(ctx context.Context, text string) (string, error) {
	apiKey := strings.TrimSpace(s.cfg.APIKey)
	if apiKey == "" {
		return "", errMissingAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for moderation slot: %w", err)
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: fmt.Sprintf(policyPrompt, text)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshalling moderation request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building moderation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	res, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("moderation request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("moderation request status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload generateResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding moderation response: %w", err)
	}
	for _, c := range payload.Candidates {
		for _, p := range c.Content.Parts {
			if v := strings.ToUpper(strings.TrimSpace(p.Text)); v != "" {
				return v, nil
			}
		}
	}
	return "", fmt.Errorf("moderation response missing text")
}
