// Package storage persists finished sessions as one JSON file per session
// id, written atomically via temp file + rename.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/domain"
)

// ErrSessionNotFound is returned for lookups and deletes of unknown ids.
var ErrSessionNotFound = errors.New("session not found")

const listSummaryLimit = 200

// SessionListEntry is the reduced view returned by List: long summaries are
// truncated and action items carry only their headline fields.
type SessionListEntry struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Summary            string            `json:"summary"`
	StartTime          int64             `json:"startTime"`
	EndTime            int64             `json:"endTime,omitempty"`
	Duration           int64             `json:"duration,omitempty"`
	Participants       []string          `json:"participants,omitempty"`
	ActionItems        []ActionItemBrief `json:"actionItems"`
	TranscriptSegments int               `json:"transcriptSegments"`
}

type ActionItemBrief struct {
	Title      string `json:"title"`
	Status     string `json:"status"`
	OwnerEmail string `json:"ownerEmail,omitempty"`
	DueDate    string `json:"dueDate,omitempty"`
}

type SessionStats struct {
	TotalSessions        int     `json:"totalSessions"`
	TotalActionItems     int     `json:"totalActionItems"`
	TotalSegments        int     `json:"totalTranscriptSegments"`
	AverageItemsPerGroup float64 `json:"averageActionItemsPerSession"`
}

type SessionStore struct {
	mu          sync.RWMutex
	sessionsDir string
	pdfDir      string
}

func NewSessionStore(baseDir string) (*SessionStore, error) {
	store := &SessionStore{
		sessionsDir: filepath.Join(baseDir, "sessions"),
		pdfDir:      filepath.Join(baseDir, "pdf"),
	}

	for _, dir := range []string{store.sessionsDir, store.pdfDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	return store, nil
}

// Save writes a session record, assigning an id and default title when
// absent. Records are immutable once written.
func (s *SessionStore) Save(record domain.SessionRecord) (domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if record.ID == "" {
		record.ID = fmt.Sprintf("session-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
	}
	if strings.TrimSpace(record.Title) == "" {
		record.Title = fmt.Sprintf("Reunión %s", now.Format("02/01/2006"))
	}
	if record.StartTime == 0 {
		record.StartTime = now.Unix()
	}
	if record.EndTime == 0 {
		record.EndTime = now.Unix()
	}
	if record.ActionItems == nil {
		record.ActionItems = []domain.ActionItem{}
	}

	if err := s.writeRecord(record); err != nil {
		return domain.SessionRecord{}, err
	}

	return record, nil
}

func (s *SessionStore) Get(id string) (domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := os.Open(s.sessionPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return domain.SessionRecord{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("open session file: %w", err)
	}
	defer file.Close()

	var record domain.SessionRecord
	if err := json.NewDecoder(file).Decode(&record); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("decode session %s: %w", id, err)
	}

	return record, nil
}

// List returns one page of sessions, newest first. Unreadable files are
// skipped rather than failing the listing.
func (s *SessionStore) List(page, limit int) ([]SessionListEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.readAll()
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartTime > records[j].StartTime
	})

	total := len(records)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	entries := make([]SessionListEntry, 0, end-start)
	for _, record := range records[start:end] {
		entries = append(entries, listEntry(record))
	}

	return entries, total, nil
}

func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.sessionPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}

	// Minutes PDFs are derived artifacts; drop them with the record.
	_ = os.Remove(s.PDFPath(id))

	return nil
}

func (s *SessionStore) Stats() (SessionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.readAll()
	if err != nil {
		return SessionStats{}, err
	}

	stats := SessionStats{TotalSessions: len(records)}
	for _, record := range records {
		stats.TotalActionItems += len(record.ActionItems)
		stats.TotalSegments += len(record.Transcript)
	}
	if stats.TotalSessions > 0 {
		stats.AverageItemsPerGroup = float64(stats.TotalActionItems) / float64(stats.TotalSessions)
	}

	return stats, nil
}

// PDFPath returns where the minutes PDF for a session lives on disk.
func (s *SessionStore) PDFPath(id string) string {
	return filepath.Join(s.pdfDir, fmt.Sprintf("%s.pdf", id))
}

func (s *SessionStore) sessionPath(id string) string {
	// Ids are generated server side, but never trust them as paths.
	return filepath.Join(s.sessionsDir, fmt.Sprintf("%s.json", filepath.Base(id)))
}

func (s *SessionStore) writeRecord(record domain.SessionRecord) error {
	tmp, err := os.CreateTemp(s.sessionsDir, "session-*.json")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(record); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode session: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp session file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.sessionPath(record.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace session file: %w", err)
	}

	return nil
}

func (s *SessionStore) readAll() ([]domain.SessionRecord, error) {
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	records := make([]domain.SessionRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(s.sessionsDir, entry.Name()))
		if err != nil {
			continue
		}

		var record domain.SessionRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func listEntry(record domain.SessionRecord) SessionListEntry {
	summary := record.Summary
	if len(summary) > listSummaryLimit {
		summary = summary[:listSummaryLimit] + "..."
	}

	items := make([]ActionItemBrief, 0, len(record.ActionItems))
	for _, item := range record.ActionItems {
		items = append(items, ActionItemBrief{
			Title:      item.Title,
			Status:     item.Status,
			OwnerEmail: item.OwnerEmail,
			DueDate:    item.DueDate,
		})
	}

	return SessionListEntry{
		ID:                 record.ID,
		Title:              record.Title,
		Summary:            summary,
		StartTime:          record.StartTime,
		EndTime:            record.EndTime,
		Duration:           record.Duration,
		Participants:       record.Participants,
		ActionItems:        items,
		TranscriptSegments: len(record.Transcript),
	}
}
