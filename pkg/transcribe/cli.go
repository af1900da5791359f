package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"lecture-notes/pkg/config"
	"lecture-notes/pkg/executor"
)

type cliTranscriber struct {
	cfg      config.TranscriberConfig
	executor executor.Executor
}

// whisperJSON is the file whisper.cpp writes with -oj.
type whisperJSON struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// NewCLITranscriber runs whisper.cpp locally. Input is first decoded by
// ffmpeg into the 16kHz mono PCM WAV whisper.cpp expects.
func NewCLITranscriber(cfg config.TranscriberConfig, exec executor.Executor) Transcriber {
	return &cliTranscriber{cfg: cfg, executor: exec}
}

func (t *cliTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	workDir, err := os.MkdirTemp("", "whisper-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	wavPath := filepath.Join(workDir, "audio.wav")
	if _, err := t.executor.Execute(ctx, t.cfg.FFmpegPath,
		"-i", audioPath,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		wavPath,
	); err != nil {
		return nil, fmt.Errorf("ffmpeg decode audio: %w", err)
	}

	modelPath, err := filepath.Abs(t.cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("resolve model path: %w", err)
	}

	const outputPrefix = "transcript"
	language := t.cfg.Language
	if language == "" {
		language = "auto"
	}
	// whisper.cpp runs inside workDir so its output lands next to the WAV.
	if _, err := t.executor.ExecuteInDir(ctx, workDir, t.cfg.BinaryPath,
		"-m", modelPath,
		"-f", filepath.Base(wavPath),
		"-l", language,
		"-t", strconv.Itoa(t.cfg.Threads),
		"-bo", "5",
		"-bs", "5",
		"-oj",
		"-of", outputPrefix,
	); err != nil {
		return nil, fmt.Errorf("whisper transcribe: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(workDir, outputPrefix+".json"))
	if err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}

	var parsed whisperJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode whisper output: %w", err)
	}

	segments := make([]Segment, 0, len(parsed.Transcription))
	var endMillis int64
	for _, s := range parsed.Transcription {
		segments = append(segments, Segment{
			Start: float64(s.Offsets.From) / 1000,
			End:   float64(s.Offsets.To) / 1000,
			Text:  s.Text,
		})
		if s.Offsets.To > endMillis {
			endMillis = s.Offsets.To
		}
	}

	return &Result{
		Text:            JoinSegments(segments),
		Language:        optionalString(parsed.Result.Language),
		DurationSeconds: optionalDuration(float64(endMillis) / 1000),
	}, nil
}

func (t *cliTranscriber) Close() error {
	return nil
}
