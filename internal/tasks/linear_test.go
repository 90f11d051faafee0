package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/config"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/domain"
)

func TestMapLinearPriority(t *testing.T) {
	cases := map[string]int{
		"high":    1,
		"urgent":  1,
		"HIGH":    1,
		"medium":  2,
		"low":     3,
		"":        2,
		"unknown": 2,
	}
	for in, want := range cases {
		if got := MapLinearPriority(in); got != want {
			t.Errorf("MapLinearPriority(%q) = %d, want %d", in, got, want)
		}
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// fakeLinear answers user lookups with no match and fails issue creation
// for titles listed in failTitles.
func fakeLinear(t *testing.T, failTitles map[string]bool, created *[]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode graphql request: %v", err)
		}

		switch {
		case strings.Contains(req.Query, "GetUserByEmail"):
			w.Write([]byte(`{"data": {"users": {"nodes": []}}}`))
		case strings.Contains(req.Query, "CreateIssue"):
			input := req.Variables["input"].(map[string]any)
			title := input["title"].(string)
			if failTitles[title] {
				w.Write([]byte(`{"errors": [{"message": "boom"}]}`))
				return
			}
			*created = append(*created, title)
			resp := map[string]any{
				"data": map[string]any{
					"issueCreate": map[string]any{
						"success": true,
						"issue": map[string]any{
							"id":         "issue-" + title,
							"identifier": "ECO-1",
							"url":        "https://linear.app/issue/ECO-1",
						},
					},
				},
			}
			json.NewEncoder(w).Encode(resp)
		default:
			t.Fatalf("unexpected query: %s", req.Query)
		}
	}
}

func newLinearDispatcher(url string) *LinearDispatcher {
	d := NewLinearDispatcher(config.Config{
		LinearAPIKey:            "key",
		LinearTeamID:            "team",
		LinearDefaultAssigneeID: "default-assignee",
	})
	d.Endpoint = url
	return d
}

func TestLinearDispatchBatchIndependence(t *testing.T) {
	var created []string
	server := httptest.NewServer(fakeLinear(t, map[string]bool{"two": true}, &created))
	defer server.Close()

	d := newLinearDispatcher(server.URL)
	items := []domain.ActionItem{
		{Title: "one", Priority: "high", Status: domain.StatusPending},
		{Title: "two", Priority: "medium", Status: domain.StatusPending},
		{Title: "three", Priority: "low", Status: domain.StatusPending},
	}

	results := d.Dispatch(context.Background(), items, "session-1")

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	wantSuccess := []bool{true, false, true}
	for i, r := range results {
		if r.Title != items[i].Title {
			t.Errorf("result %d title = %q, want %q", i, r.Title, items[i].Title)
		}
		if r.Success != wantSuccess[i] {
			t.Errorf("result %d success = %v, want %v", i, r.Success, wantSuccess[i])
		}
	}
	if results[1].Error == "" {
		t.Error("failed result missing error message")
	}
	if results[0].Identifier == "" || results[0].URL == "" {
		t.Errorf("successful result missing identifiers: %+v", results[0])
	}
	// The failure of item two must not prevent item three.
	if len(created) != 2 || created[1] != "three" {
		t.Errorf("created = %v, want [one three]", created)
	}
}

func TestLinearDispatchUnresolvedEmailUsesDefault(t *testing.T) {
	var sawAssignee string
	server := httptest.NewServer(func() http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var req graphqlRequest
			json.NewDecoder(r.Body).Decode(&req)
			if strings.Contains(req.Query, "GetUserByEmail") {
				w.Write([]byte(`{"data": {"users": {"nodes": []}}}`))
				return
			}
			input := req.Variables["input"].(map[string]any)
			if v, ok := input["assigneeId"].(string); ok {
				sawAssignee = v
			}
			w.Write([]byte(`{"data": {"issueCreate": {"success": true, "issue": {"id": "i", "identifier": "ECO-2", "url": "u"}}}}`))
		}
	}())
	defer server.Close()

	d := newLinearDispatcher(server.URL)
	results := d.Dispatch(context.Background(), []domain.ActionItem{
		{Title: "task", OwnerEmail: "nobody@example.com", Status: domain.StatusPending},
	}, "")

	if !results[0].Success {
		t.Fatalf("dispatch failed: %+v", results[0])
	}
	if sawAssignee != "default-assignee" {
		t.Errorf("assignee = %q, want default-assignee", sawAssignee)
	}
}

func TestLinearDescriptionCarriesProvenance(t *testing.T) {
	var sawDescription string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "CreateIssue") {
			input := req.Variables["input"].(map[string]any)
			if v, ok := input["description"].(string); ok {
				sawDescription = v
			}
			w.Write([]byte(`{"data": {"issueCreate": {"success": true, "issue": {"id": "i", "identifier": "ECO-3", "url": "u"}}}}`))
			return
		}
		w.Write([]byte(`{"data": {"users": {"nodes": []}}}`))
	}))
	defer server.Close()

	d := newLinearDispatcher(server.URL)
	d.Dispatch(context.Background(), []domain.ActionItem{
		{Title: "task", Description: "detalle", Source: "Extracción gpt-4o-mini", TimestampSec: 125, Status: domain.StatusPending},
	}, "session-9")

	for _, want := range []string{"detalle", "Creado desde sesión: session-9", "Fuente: Extracción gpt-4o-mini", "Tiempo: 2:05"} {
		if !strings.Contains(sawDescription, want) {
			t.Errorf("description missing %q:\n%s", want, sawDescription)
		}
	}
}
