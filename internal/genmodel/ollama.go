package genmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kestrelhq/pagegen/internal/validator"
)

type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaProvider(baseURL, model string, timeout time.Duration) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:latest"
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: timeout},
	}
}

type ollamaChatReq struct {
	Model    string      `json:"model"`
	Messages []ollamaMsg `json:"messages"`
	Stream   bool        `json:"stream"`
	Format   string      `json:"format,omitempty"`
}

type ollamaMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResp struct {
	Message ollamaMsg `json:"message"`
	Error   string    `json:"error,omitempty"`
}

func (p *OllamaProvider) Generate(ctx context.Context, messages []Message) (GenerationResult, error) {
	if p.Client == nil {
		return GenerationResult{}, errors.New("ollama: http client is nil")
	}

	reqBody := ollamaChatReq{
		Model:  p.Model,
		Stream: false,
		Format: "json",
		Messages: func() []ollamaMsg {
			out := make([]ollamaMsg, 0, len(messages))
			for _, m := range messages {
				out = append(out, ollamaMsg{Role: m.Role, Content: m.Content})
			}
			return out
		}(),
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return GenerationResult{}, err
	}

	url := fmt.Sprintf("%s/api/chat", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return GenerationResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		// Timeout / connection failure: retryable, classified by the Worker.
		return GenerationResult{Success: false, Err: err.Error(), Retryable: true}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return GenerationResult{Success: false, Err: fmt.Sprintf("ollama: status %d", resp.StatusCode), Retryable: true}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return GenerationResult{Success: false, Err: fmt.Sprintf("ollama: status %d", resp.StatusCode), Retryable: false}, nil
	}

	var decoded ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return GenerationResult{Success: false, Err: "ollama: malformed response envelope", Retryable: true}, nil
	}
	if decoded.Error != "" {
		return GenerationResult{Success: false, Err: decoded.Error, Retryable: true}, nil
	}

	tmpl, err := validator.ParseTemplate([]byte(decoded.Message.Content))
	if err != nil {
		return GenerationResult{
			Success:     false,
			RawResponse: decoded.Message.Content,
			Err:         "model did not return a valid template: " + err.Error(),
			Retryable:   false,
		}, nil
	}

	return GenerationResult{
		Success:     true,
		Template:    tmpl,
		RawResponse: decoded.Message.Content,
	}, nil
}
