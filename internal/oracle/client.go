package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/amirk1998/secure-bank/internal/circuitbreaker"
	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

// Client calls the model service over JSON/HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	logger     *slog.Logger
}

var _ Oracle = (*Client)(nil)

// NewClient creates a model service client. timeout bounds every call.
func NewClient(baseURL, apiKey string, timeout time.Duration, breaker *circuitbreaker.Breaker, logger *slog.Logger) *Client {
	if breaker == nil {
		breaker = circuitbreaker.New(5, 30*time.Second)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: breaker,
		logger:  logger,
	}
}

func (c *Client) ScoreRisk(ctx context.Context, signals models.BehavioralSignals) (*models.RiskAssessment, error) {
	var resp struct {
		RiskScore *float64 `json:"riskScore"`
		Reasons   []string `json:"reasons"`
	}
	if err := c.call(ctx, CapabilityRisk, "/v1/risk/score", signals, &resp); err != nil {
		return nil, err
	}
	if resp.RiskScore == nil {
		return nil, fmt.Errorf("%w: risk score missing", errors.ErrOracleMalformed)
	}
	score := *resp.RiskScore
	if math.IsNaN(score) || score < 0 || score > 1 {
		return nil, fmt.Errorf("%w: risk score %v outside [0,1]", errors.ErrOracleMalformed, score)
	}
	return &models.RiskAssessment{RiskScore: score, Reasons: resp.Reasons}, nil
}

func (c *Client) VerifySignature(ctx context.Context, imageDataURI string) (*models.SignatureVerdict, error) {
	req := map[string]string{"signatureDataUri": imageDataURI}
	var resp models.SignatureVerdict
	if err := c.call(ctx, CapabilitySignature, "/v1/signature/verify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) VerifyVoice(ctx context.Context, check VoiceCheck) (*models.VoiceVerdict, error) {
	var resp models.VoiceVerdict
	if err := c.call(ctx, CapabilityVoice, "/v1/voice/verify", check, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Transcribe(ctx context.Context, audioDataURI string) (string, error) {
	req := map[string]string{"audioDataUri": audioDataURI}
	var resp struct {
		Text *string `json:"text"`
	}
	if err := c.call(ctx, CapabilityTranscribe, "/v1/voice/transcribe", req, &resp); err != nil {
		return "", err
	}
	if resp.Text == nil {
		return "", fmt.Errorf("%w: transcription missing", errors.ErrOracleMalformed)
	}
	return NormalizeTranscript(*resp.Text), nil
}

func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	req := map[string]string{"text": text}
	var resp struct {
		AudioDataURI string `json:"audioDataUri"`
	}
	if err := c.call(ctx, CapabilitySpeech, "/v1/speech", req, &resp); err != nil {
		return "", err
	}
	if resp.AudioDataURI == "" {
		return "", fmt.Errorf("%w: audio missing", errors.ErrOracleMalformed)
	}
	return resp.AudioDataURI, nil
}

func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	req := map[string]string{"question": question}
	var resp struct {
		Answer string `json:"answer"`
	}
	if err := c.call(ctx, CapabilityChat, "/v1/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// call posts body to path and decodes the reply into target, feeding the
// breaker and latency histogram.
func (c *Client) call(ctx context.Context, capability, path string, body, target any) error {
	if !c.breaker.Allow(capability) {
		metrics.OracleRequestDuration.WithLabelValues(capability, "short_circuit").Observe(0)
		return fmt.Errorf("%w: %s circuit open", errors.ErrOracleUnavailable, capability)
	}

	start := time.Now()
	err := c.do(ctx, path, body, target)
	result := "ok"
	if err != nil {
		result = "error"
		c.breaker.RecordFailure(capability)
		c.logger.Warn("oracle call failed", "capability", capability, "error", err)
	} else {
		c.breaker.RecordSuccess(capability)
	}
	metrics.OracleRequestDuration.WithLabelValues(capability, result).Observe(time.Since(start).Seconds())
	return err
}

func (c *Client) do(ctx context.Context, path string, body, target any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", errors.ErrOracleUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrOracleMalformed, err)
	}

	return nil
}
