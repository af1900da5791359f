package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"lecture-notes/pkg/config"
)

// Request carries the transcript and the lecture metadata embedded in the prompt.
type Request struct {
	Transcript  string
	Title       string
	Course      *string
	Lecturer    *string
	LectureDate *string
}

// Generator turns a transcript into study notes.
type Generator interface {
	GenerateNotes(ctx context.Context, req Request) (string, error)
}

const promptTemplate = `You are an expert teaching assistant. Using the lecture transcript below, write clear, well-structured study notes for a student.

Lecture details:
- Title: %s
- Course: %s
- Lecturer: %s
- Date: %s

Write the notes with these sections:
1. Summary: a short paragraph describing what the lecture covered.
2. Key Points: bullet points of the main ideas, in the order they were presented.
3. Definitions: important terms and their meanings.
4. Examples: worked examples or illustrations mentioned in the lecture.
5. Review Questions: a few questions a student could use to test understanding.

Only use information from the transcript. Do not invent facts.

Transcript:
---
%s
---`

// BuildPrompt renders the prompt for req. It is deterministic: the same
// request always yields the same prompt.
func BuildPrompt(req Request) string {
	return fmt.Sprintf(promptTemplate,
		req.Title,
		orUnknown(req.Course),
		orUnknown(req.Lecturer),
		orUnknown(req.LectureDate),
		strings.TrimSpace(req.Transcript),
	)
}

func orUnknown(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "N/A"
	}
	return strings.TrimSpace(*s)
}

type ollamaGenerator struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// NewOllamaGenerator talks to an Ollama server's /api/generate endpoint.
// A nil client means http.DefaultClient; the request context bounds the call.
func NewOllamaGenerator(cfg config.LLMConfig, client *http.Client) Generator {
	if client == nil {
		client = http.DefaultClient
	}
	return &ollamaGenerator{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.ModelName,
		client:  client,
	}
}

// GenerateNotes returns the model output verbatim.
func (g *ollamaGenerator) GenerateNotes(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(ollamaGenerateRequest{
		Model:  g.model,
		Prompt: BuildPrompt(req),
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama error: %s", parsed.Error)
	}
	return parsed.Response, nil
}
