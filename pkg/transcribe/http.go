package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"lecture-notes/pkg/config"
)

type httpTranscriber struct {
	baseURL  string
	model    string
	language string
	apiKey   string
	client   *http.Client
}

// verboseResponse is the response_format=verbose_json body.
type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// NewHTTPTranscriber posts audio to {base_url}/v1/audio/transcriptions. A nil
// client means http.DefaultClient; the request context bounds the call.
func NewHTTPTranscriber(cfg config.TranscriberConfig, client *http.Client) Transcriber {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpTranscriber{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		language: cfg.Language,
		apiKey:   cfg.APIKey,
		client:   client,
	}
}

func (t *httpTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	// The form is streamed through a pipe so large recordings are never
	// buffered whole in memory. The writer starts only once the request
	// exists to read from it.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/audio/transcriptions", pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	go func() {
		pw.CloseWithError(t.writeForm(writer, file, filepath.Base(audioPath)))
	}()

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("transcription server error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}

	text := strings.TrimSpace(parsed.Text)
	if len(parsed.Segments) > 0 {
		segments := make([]Segment, 0, len(parsed.Segments))
		for _, s := range parsed.Segments {
			segments = append(segments, Segment{Start: s.Start, End: s.End, Text: s.Text})
		}
		text = JoinSegments(segments)
	}

	return &Result{
		Text:            text,
		Language:        optionalString(parsed.Language),
		DurationSeconds: optionalDuration(parsed.Duration),
	}, nil
}

func (t *httpTranscriber) writeForm(writer *multipart.Writer, file io.Reader, filename string) error {
	if err := writer.WriteField("model", t.model); err != nil {
		return err
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return err
	}
	if t.language != "" {
		if err := writer.WriteField("language", t.language); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return writer.Close()
}

func (t *httpTranscriber) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
