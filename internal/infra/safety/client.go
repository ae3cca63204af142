package safety

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTP clients for the external content-safety models. The bot consumes
// only their scores; model internals live behind these endpoints.

const maxResponseBytes = 2 * 1024 * 1024

type ProfanityClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewProfanityClient(baseURL string, timeout time.Duration) (*ProfanityClient, error) {
	trimmed, err := validateBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ProfanityClient{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// ScoreText returns the model's probability that the text is profane.
func (c *ProfanityClient) ScoreText(ctx context.Context, text string) (float64, error) {
	if c == nil || c.httpClient == nil {
		return 0, errors.New("profanity client is not initialized")
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return 0, fmt.Errorf("marshal profanity request: %w", err)
	}

	body, err := doPost(ctx, c.httpClient, c.baseURL+"/score", "application/json", payload)
	if err != nil {
		return 0, err
	}

	var response struct {
		Probability float64 `json:"probability"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("decode profanity response: %w", err)
	}
	return response.Probability, nil
}

type ImageDetection struct {
	Class string  `json:"class"`
	Score float64 `json:"score"`
}

type ImageClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewImageClient(baseURL string, timeout time.Duration) (*ImageClient, error) {
	trimmed, err := validateBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ImageClient{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// ScoreImage returns per-class detections for the image payload.
func (c *ImageClient) ScoreImage(ctx context.Context, data []byte) ([]ImageDetection, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("image safety client is not initialized")
	}
	if len(data) == 0 {
		return nil, errors.New("image payload is empty")
	}

	body, err := doPost(ctx, c.httpClient, c.baseURL+"/classify", "application/octet-stream", data)
	if err != nil {
		return nil, err
	}

	var response struct {
		Detections []ImageDetection `json:"detections"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decode image safety response: %w", err)
	}
	return response.Detections, nil
}

func validateBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("base url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid base url: %s", trimmed)
	}
	return strings.TrimRight(trimmed, "/"), nil
}

func doPost(ctx context.Context, client *http.Client, fullURL, contentType string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(body))
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, message)
	}
	return body, nil
}
