package realtime

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/domain"
)

// ErrInvalidSession is returned for audio_chunk or stop_session messages
// naming an id that was never started or was already stopped.
var ErrInvalidSession = errors.New("invalid session")

const (
	EventTranscriptPartial = "transcript_partial"
	EventTranscriptFinal   = "transcript_final"
	EventActionItems       = "action_items"
)

// fallbackTranscript is appended in place of the provider's output when
// transcription fails and the degrade policy is enabled.
const fallbackTranscript = "(fragmento de audio no transcrito)"

// Transcriber converts one audio blob into text. An empty result means no
// speech was recognized, not an error.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, language string) (string, error)
}

// Extractor turns a full transcript into structured action items.
type Extractor interface {
	ExtractActionItems(ctx context.Context, transcript string) ([]domain.ActionItem, error)
}

// TranscriptEvent is the response payload for one audio_chunk message.
type TranscriptEvent struct {
	Type           string  `json:"type"`
	Text           string  `json:"text"`
	FullTranscript string  `json:"fullTranscript,omitempty"`
	Confidence     float64 `json:"confidence"`
	Degraded       bool    `json:"degraded,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// StopResult is the response payload for a stop_session message.
type StopResult struct {
	Items          []domain.ActionItem `json:"data"`
	FullTranscript string              `json:"fullTranscript"`
	Degraded       bool                `json:"degraded,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// Controller orchestrates the session lifecycle: start, accumulate chunks,
// stop and extract. Transcription and extraction failures degrade to
// placeholder content instead of halting the session; the event carries an
// explicit annotation so callers can still surface the failure.
type Controller struct {
	store         Store
	transcriber   Transcriber
	extractor     Extractor
	minAudioBytes int64
	fallback      bool
}

func NewController(store Store, transcriber Transcriber, extractor Extractor, minAudioBytes int64, fallback bool) *Controller {
	return &Controller{
		store:         store,
		transcriber:   transcriber,
		extractor:     extractor,
		minAudioBytes: minAudioBytes,
		fallback:      fallback,
	}
}

// StartSession allocates fresh session state and returns its id.
func (c *Controller) StartSession() string {
	session := c.store.Create()
	return session.ID
}

// AudioChunk transcribes one chunk and appends the result to the session
// transcript. Buffers below the minimum size are not decodable into
// meaningful text, so they produce a low-confidence partial without touching
// the transcriber.
func (c *Controller) AudioChunk(ctx context.Context, sessionID string, audio []byte, mimeType string) (TranscriptEvent, error) {
	if sessionID == "" {
		return TranscriptEvent{}, ErrInvalidSession
	}
	if _, ok := c.store.Get(sessionID); !ok {
		return TranscriptEvent{}, ErrInvalidSession
	}

	if int64(len(audio)) < c.minAudioBytes {
		return TranscriptEvent{
			Type:       EventTranscriptPartial,
			Text:       "",
			Confidence: 0.3,
		}, nil
	}

	text, err := c.transcriber.Transcribe(ctx, audio, mimeType, "es")
	if err != nil {
		if !c.fallback {
			return TranscriptEvent{}, err
		}

		log.Printf("transcription failed for %s, substituting placeholder: %v", sessionID, err)
		session, ok := c.store.Append(sessionID, fallbackTranscript)
		if !ok {
			return TranscriptEvent{}, ErrInvalidSession
		}
		return TranscriptEvent{
			Type:           EventTranscriptFinal,
			Text:           fallbackTranscript,
			FullTranscript: session.Transcript,
			Confidence:     0,
			Degraded:       true,
			Error:          err.Error(),
		}, nil
	}

	if strings.TrimSpace(text) == "" {
		// No speech recognized: nothing to append.
		return TranscriptEvent{
			Type:       EventTranscriptPartial,
			Text:       "",
			Confidence: 0.5,
		}, nil
	}

	session, ok := c.store.Append(sessionID, text)
	if !ok {
		return TranscriptEvent{}, ErrInvalidSession
	}

	return TranscriptEvent{
		Type:           EventTranscriptFinal,
		Text:           text,
		FullTranscript: session.Transcript,
		Confidence:     0.95,
	}, nil
}

// StopSession removes the session from the store and extracts action items
// from whatever transcript accumulated. Removal happens before extraction:
// the id is gone regardless of the extraction outcome.
func (c *Controller) StopSession(ctx context.Context, sessionID string) (StopResult, error) {
	if sessionID == "" {
		return StopResult{}, ErrInvalidSession
	}

	session, ok := c.store.Remove(sessionID)
	if !ok {
		return StopResult{}, ErrInvalidSession
	}

	if strings.TrimSpace(session.Transcript) == "" {
		return StopResult{Items: []domain.ActionItem{}, FullTranscript: ""}, nil
	}

	items, err := c.extractor.ExtractActionItems(ctx, session.Transcript)
	if err != nil {
		log.Printf("extraction failed for %s, substituting placeholder items: %v", sessionID, err)
		return StopResult{
			Items:          placeholderActionItems(),
			FullTranscript: session.Transcript,
			Degraded:       true,
			Error:          err.Error(),
		}, nil
	}

	return StopResult{Items: items, FullTranscript: session.Transcript}, nil
}

func placeholderActionItems() []domain.ActionItem {
	return domain.NormalizeActionItems([]domain.ActionItem{
		{
			Title:        "Revisar la transcripción de la reunión",
			Description:  "La extracción automática de tareas no estuvo disponible; revisar la transcripción y capturar las tareas manualmente.",
			Priority:     domain.PriorityMedium,
			Source:       "fallback",
			TimestampSec: time.Now().Unix(),
		},
	})
}
