package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/config"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/domain"
)

const (
	defaultTranscriptionEndpoint = "https://api.openai.com/v1/audio/transcriptions"
	defaultCompletionEndpoint    = "https://api.openai.com/v1/chat/completions"
	requestTimeout               = 2 * time.Minute
)

// ErrExtractionParse marks a model response that was not a valid JSON array
// of action items. Callers must have a recovery policy: model output is not
// guaranteed well-formed.
var ErrExtractionParse = errors.New("extraction output is not valid action-item JSON")

var extractSystemPrompt = `Eres un asistente para reuniones en español. Analiza la transcripción y devuelve ÚNICAMENTE un array JSON de tareas con la forma:
[{"title": string, "description"?: string, "ownerEmail"?: string, "dueDate"?: string, "priority"?: "low"|"medium"|"high"}]
- title es obligatorio.
- No inventes emails ni fechas; usa ownerEmail solo si se menciona claramente una persona responsable.
- dueDate en formato YYYY-MM-DD solo si se menciona una fecha explícita.
- priority según el lenguaje de urgencia de la transcripción.
- Devuelve [] si no hay tareas. Sin texto adicional, sin markdown.`

var summarySystemPrompt = "Eres un asistente para reuniones en español. Resume la reunión en 3-5 bullets ejecutivos claros."

// filename hints for providers that infer the container from the extension.
var mimeFilenames = map[string]string{
	"audio/webm": "chunk.webm",
	"audio/mp4":  "chunk.mp4",
	"audio/wav":  "chunk.wav",
	"audio/ogg":  "chunk.ogg",
}

type OpenAIService struct {
	apiKey          string
	reqTimeout      time.Duration
	transcribeModel string
	extractModel    string
	httpClient      *http.Client

	// Endpoints are fields so tests can point at a local server.
	TranscriptionEndpoint string
	CompletionEndpoint    string
}

func NewOpenAIService(cfg config.Config) *OpenAIService {
	return &OpenAIService{
		apiKey:                cfg.OpenAIAPIKey,
		reqTimeout:            requestTimeout,
		transcribeModel:       cfg.OpenAIModelTranscribe,
		extractModel:          cfg.OpenAIModelExtract,
		TranscriptionEndpoint: defaultTranscriptionEndpoint,
		CompletionEndpoint:    defaultCompletionEndpoint,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Transcribe sends one audio blob to the speech-to-text endpoint and returns
// the trimmed text. Empty output is a valid result meaning no speech was
// recognized.
func (s *OpenAIService) Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error) {
	if err := s.ensureAPIKey(); err != nil {
		return "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filenameForMime(mimeType))
	if err != nil {
		return "", fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}

	if err := writer.WriteField("model", s.transcribeModel); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.TranscriptionEndpoint, body)
	if err != nil {
		return "", fmt.Errorf("create transcription request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", s.decodeAPIError(resp)
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}

	return strings.TrimSpace(payload.Text), nil
}

// ExtractActionItems asks the completion model for a strict JSON array of
// tasks and parses it into the action-item shape. Every returned item is
// stamped with source, timestamp and pending status.
func (s *OpenAIService) ExtractActionItems(ctx context.Context, transcript string) ([]domain.ActionItem, error) {
	if err := s.ensureAPIKey(); err != nil {
		return nil, err
	}

	content, err := s.complete(ctx, extractSystemPrompt, transcript, 0.1)
	if err != nil {
		return nil, err
	}

	items, err := parseActionItems(content)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	for i := range items {
		items[i].Source = "Extracción " + s.extractModel
		items[i].TimestampSec = now
		items[i].Status = domain.StatusPending
	}

	return items, nil
}

// SummarizeMeeting produces the executive bullet summary stored alongside a
// finished session.
func (s *OpenAIService) SummarizeMeeting(ctx context.Context, transcript string) (string, error) {
	if err := s.ensureAPIKey(); err != nil {
		return "", err
	}
	return s.complete(ctx, summarySystemPrompt, transcript, 0.2)
}

func (s *OpenAIService) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	payload := map[string]any{
		"model": s.extractModel,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": temperature,
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.CompletionEndpoint, buf)
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", s.decodeAPIError(resp)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", errors.New("no completion returned")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// parseActionItems parses the model's raw text output as a JSON array of
// items. Models occasionally wrap the array in a markdown fence; that much
// is tolerated, anything else is a parse failure.
func parseActionItems(content string) ([]domain.ActionItem, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var items []domain.ActionItem
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}

	return domain.NormalizeActionItems(items), nil
}

func (s *OpenAIService) do(req *http.Request) (*http.Response, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	return resp, nil
}

func (s *OpenAIService) decodeAPIError(resp *http.Response) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("openai api error: status %d type %s message %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
	}

	return fmt.Errorf("openai api error: status %d body %s", resp.StatusCode, string(body))
}

func (s *OpenAIService) ensureAPIKey() error {
	if strings.TrimSpace(s.apiKey) == "" {
		return errors.New("openai api key is not configured")
	}
	return nil
}

func filenameForMime(mimeType string) string {
	base := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	if name, ok := mimeFilenames[base]; ok {
		return name
	}
	return "chunk.webm"
}
