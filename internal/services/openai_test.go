package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/config"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/domain"
)

func testService(t *testing.T, handler http.HandlerFunc) *OpenAIService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewOpenAIService(config.Config{
		OpenAIAPIKey:          "test-key",
		OpenAIModelTranscribe: "whisper-1",
		OpenAIModelExtract:    "gpt-4o-mini",
	})
	svc.TranscriptionEndpoint = server.URL
	svc.CompletionEndpoint = server.URL
	return svc
}

func completionResponse(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestTranscribe(t *testing.T) {
	var gotFilename string
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.MultipartForm.File["file"] != nil {
			gotFilename = r.MultipartForm.File["file"][0].Filename
		}
		if model := r.FormValue("model"); model != "whisper-1" {
			t.Errorf("model = %q", model)
		}
		w.Write([]byte(`{"text": "  hola mundo  "}`))
	})

	text, err := svc.Transcribe(context.Background(), make([]byte, 2000), "audio/mp4", "es")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "hola mundo" {
		t.Errorf("text = %q, want trimmed %q", text, "hola mundo")
	}
	if gotFilename != "chunk.mp4" {
		t.Errorf("filename = %q, want chunk.mp4", gotFilename)
	}
}

func TestTranscribeProviderError(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit"}}`))
	})

	if _, err := svc.Transcribe(context.Background(), make([]byte, 2000), "audio/webm", "es"); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestTranscribeWithoutKey(t *testing.T) {
	svc := NewOpenAIService(config.Config{})
	if _, err := svc.Transcribe(context.Background(), make([]byte, 2000), "audio/webm", "es"); err == nil {
		t.Fatal("expected configuration error before any call")
	}
}

func TestFilenameForMime(t *testing.T) {
	cases := map[string]string{
		"audio/webm":            "chunk.webm",
		"audio/mp4":             "chunk.mp4",
		"audio/wav":             "chunk.wav",
		"audio/ogg":             "chunk.ogg",
		"audio/webm;codecs=opus": "chunk.webm",
		"application/x-unknown": "chunk.webm",
		"":                      "chunk.webm",
	}
	for mime, want := range cases {
		if got := filenameForMime(mime); got != want {
			t.Errorf("filenameForMime(%q) = %q, want %q", mime, got, want)
		}
	}
}

func TestExtractActionItems(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse(`[{"title": "Revisar login", "priority": "high", "ownerEmail": "juan@example.com", "dueDate": "2025-10-25"}]`)))
	})

	items, err := svc.ExtractActionItems(context.Background(), "revisa el login para el viernes")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}

	item := items[0]
	if item.Title != "Revisar login" || item.Priority != domain.PriorityHigh {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Status != domain.StatusPending {
		t.Errorf("status = %q, want pending", item.Status)
	}
	if item.Source == "" || item.TimestampSec == 0 {
		t.Errorf("item not stamped: %+v", item)
	}
}

func TestExtractActionItemsFencedOutput(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("```json\n[{\"title\": \"Enviar reporte\"}]\n```")))
	})

	items, err := svc.ExtractActionItems(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Enviar reporte" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestExtractActionItemsParseError(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("Claro, aquí están las tareas: revisar el login.")))
	})

	_, err := svc.ExtractActionItems(context.Background(), "transcript")
	if !errors.Is(err, ErrExtractionParse) {
		t.Fatalf("got %v, want ErrExtractionParse", err)
	}
}

func TestSummarizeMeeting(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("• Se revisó el login\n• Se acordó el despliegue")))
	})

	summary, err := svc.SummarizeMeeting(context.Background(), "hablamos del login y del despliegue")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary == "" {
		t.Error("empty summary")
	}
}

func TestExtractActionItemsEmptyArray(t *testing.T) {
	svc := testService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("[]")))
	})

	items, err := svc.ExtractActionItems(context.Background(), "charla sin tareas")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0", len(items))
	}
}
