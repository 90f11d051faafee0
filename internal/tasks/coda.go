package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/config"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/domain"
)

const defaultCodaEndpoint = "https://coda.io/apis/v1"

// Column names expected in the target Coda table. Only the title column is
// required; the rest are filled when present.
var (
	codaRequiredColumns    = []string{"Título"}
	codaRecommendedColumns = []string{"Descripción", "OwnerEmail", "Fecha Límite", "Estado", "Prioridad", "Creado", "Sesión"}
)

// CodaDispatcher inserts one table row per action item through the Coda
// REST API.
type CodaDispatcher struct {
	apiToken   string
	docID      string
	tableID    string
	httpClient *http.Client

	// Endpoint is a field so tests can point at a local server.
	Endpoint string
}

type CodaTableInfo struct {
	DocID     string `json:"docId"`
	TableID   string `json:"tableId"`
	TableName string `json:"tableName"`
	RowCount  int    `json:"rowCount"`
}

type CodaValidation struct {
	IsValid          bool     `json:"isValid"`
	MissingColumns   []string `json:"missingColumns"`
	AvailableColumns []string `json:"availableColumns"`
}

func NewCodaDispatcher(cfg config.Config) *CodaDispatcher {
	return &CodaDispatcher{
		apiToken:   cfg.CodaAPIToken,
		docID:      cfg.CodaDocID,
		tableID:    cfg.CodaTableID,
		Endpoint:   defaultCodaEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// MapCodaPriority maps the item priority to the table's localized labels.
func MapCodaPriority(priority string) string {
	switch strings.ToLower(priority) {
	case "high", "urgent":
		return "Alta"
	case "medium":
		return "Media"
	case "low":
		return "Baja"
	default:
		return "Media"
	}
}

// Dispatch validates the table shape once (best effort, missing columns are
// logged rather than fatal) and then inserts rows one by one, recording
// per-item outcomes in input order.
func (d *CodaDispatcher) Dispatch(ctx context.Context, items []domain.ActionItem, sessionID string) []domain.DispatchResult {
	if validation, err := d.ValidateTable(ctx); err != nil {
		log.Printf("coda: could not validate table structure: %v", err)
	} else if !validation.IsValid || len(validation.MissingColumns) > 0 {
		log.Printf("coda: table missing columns: %v", validation.MissingColumns)
	}

	results := make([]domain.DispatchResult, 0, len(items))

	for _, item := range items {
		rowID, err := d.insertRow(ctx, d.rowCells(item, sessionID))
		if err != nil {
			log.Printf("coda: create row for %q failed: %v", item.Title, err)
			results = append(results, domain.DispatchResult{
				Title:   item.Title,
				Success: false,
				Error:   err.Error(),
			})
			continue
		}

		results = append(results, domain.DispatchResult{
			Title:   item.Title,
			RowID:   rowID,
			URL:     fmt.Sprintf("https://coda.io/d/%s#%s/r%s", d.docID, d.tableID, rowID),
			Success: true,
		})
	}

	return results
}

func (d *CodaDispatcher) rowCells(item domain.ActionItem, sessionID string) map[string]any {
	cells := map[string]any{
		"Título":      item.Title,
		"Descripción": buildDescription(item, sessionID),
		"Estado":      "Pendiente",
		"Prioridad":   MapCodaPriority(item.Priority),
		"Creado":      time.Now().Format(time.RFC3339),
	}

	if item.OwnerEmail != "" {
		cells["OwnerEmail"] = item.OwnerEmail
	}
	if item.DueDate != "" {
		if domain.ValidDueDate(item.DueDate) {
			cells["Fecha Límite"] = item.DueDate
		} else {
			log.Printf("coda: dropping invalid due date %q for %q", item.DueDate, item.Title)
		}
	}
	if sessionID != "" {
		cells["Sesión"] = sessionID
	}

	return cells
}

func (d *CodaDispatcher) insertRow(ctx context.Context, cells map[string]any) (string, error) {
	type cell struct {
		Column string `json:"column"`
		Value  any    `json:"value"`
	}
	type row struct {
		Cells []cell `json:"cells"`
	}

	r := row{}
	for column, value := range cells {
		r.Cells = append(r.Cells, cell{Column: column, Value: value})
	}

	payload := map[string]any{
		"rows":       []row{r},
		"keyColumns": []string{},
	}

	var response struct {
		AddedRowIDs []string `json:"addedRowIds"`
	}
	path := fmt.Sprintf("/docs/%s/tables/%s/rows", d.docID, d.tableID)
	if err := d.request(ctx, http.MethodPost, path, payload, &response); err != nil {
		return "", err
	}

	if len(response.AddedRowIDs) == 0 {
		return "", fmt.Errorf("coda insert returned no row id")
	}
	return response.AddedRowIDs[0], nil
}

// ValidateTable checks that the expected columns exist. A missing required
// column makes the result invalid; missing recommended columns are reported
// but tolerated.
func (d *CodaDispatcher) ValidateTable(ctx context.Context) (CodaValidation, error) {
	var response struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
	}
	path := fmt.Sprintf("/docs/%s/tables/%s/columns", d.docID, d.tableID)
	if err := d.request(ctx, http.MethodGet, path, nil, &response); err != nil {
		return CodaValidation{}, err
	}

	available := make(map[string]bool, len(response.Items))
	names := make([]string, 0, len(response.Items))
	for _, col := range response.Items {
		available[col.Name] = true
		names = append(names, col.Name)
	}

	validation := CodaValidation{IsValid: true, AvailableColumns: names}
	for _, col := range codaRequiredColumns {
		if !available[col] {
			validation.IsValid = false
			validation.MissingColumns = append(validation.MissingColumns, col)
		}
	}
	for _, col := range codaRecommendedColumns {
		if !available[col] {
			validation.MissingColumns = append(validation.MissingColumns, col)
		}
	}

	return validation, nil
}

// TableInfo reports the configured table's name and row count, used by the
// configuration endpoint.
func (d *CodaDispatcher) TableInfo(ctx context.Context) (CodaTableInfo, error) {
	var response struct {
		Name     string `json:"name"`
		RowCount int    `json:"rowCount"`
	}
	path := fmt.Sprintf("/docs/%s/tables/%s", d.docID, d.tableID)
	if err := d.request(ctx, http.MethodGet, path, nil, &response); err != nil {
		return CodaTableInfo{}, err
	}

	return CodaTableInfo{
		DocID:     d.docID,
		TableID:   d.tableID,
		TableName: response.Name,
		RowCount:  response.RowCount,
	}, nil
}

func (d *CodaDispatcher) request(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return fmt.Errorf("encode coda payload: %w", err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, d.Endpoint+path, body)
	if err != nil {
		return fmt.Errorf("create coda request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+d.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("coda request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read coda response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("coda api error: status %d body %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode coda response: %w", err)
		}
	}

	return nil
}
