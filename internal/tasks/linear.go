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

const defaultLinearEndpoint = "https://api.linear.app/graphql"

// LinearDispatcher creates one Linear issue per action item through the
// GraphQL API.
type LinearDispatcher struct {
	apiKey            string
	teamID            string
	defaultAssigneeID string
	httpClient        *http.Client

	// Endpoint is a field so tests can point at a local server.
	Endpoint string
}

type LinearTeam struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

func NewLinearDispatcher(cfg config.Config) *LinearDispatcher {
	return &LinearDispatcher{
		apiKey:            cfg.LinearAPIKey,
		teamID:            cfg.LinearTeamID,
		defaultAssigneeID: cfg.LinearDefaultAssigneeID,
		Endpoint:          defaultLinearEndpoint,
		httpClient:        &http.Client{Timeout: 30 * time.Second},
	}
}

// MapLinearPriority maps the item priority to Linear's ordinal scale.
func MapLinearPriority(priority string) int {
	switch strings.ToLower(priority) {
	case "urgent", "high":
		return 1
	case "medium":
		return 2
	case "low":
		return 3
	default:
		return 2
	}
}

// Dispatch creates issues one by one, resolving owner emails to assignees
// and recording per-item outcomes in input order.
func (d *LinearDispatcher) Dispatch(ctx context.Context, items []domain.ActionItem, sessionID string) []domain.DispatchResult {
	results := make([]domain.DispatchResult, 0, len(items))

	for _, item := range items {
		assigneeID := d.defaultAssigneeID
		if item.OwnerEmail != "" {
			if id := d.resolveAssigneeID(ctx, item.OwnerEmail); id != "" {
				assigneeID = id
			}
		}

		issue, err := d.createIssue(ctx, issueInput{
			TeamID:      d.teamID,
			Title:       item.Title,
			Description: buildDescription(item, sessionID),
			AssigneeID:  assigneeID,
			Priority:    MapLinearPriority(item.Priority),
			DueDate:     item.DueDate,
		})
		if err != nil {
			log.Printf("linear: create issue for %q failed: %v", item.Title, err)
			results = append(results, domain.DispatchResult{
				Title:   item.Title,
				Success: false,
				Error:   err.Error(),
			})
			continue
		}

		results = append(results, domain.DispatchResult{
			Title:      item.Title,
			ID:         issue.ID,
			Identifier: issue.Identifier,
			URL:        issue.URL,
			Success:    true,
		})
	}

	return results
}

// Teams lists the workspace teams, used by the configuration endpoint.
func (d *LinearDispatcher) Teams(ctx context.Context) ([]LinearTeam, error) {
	query := `
		query GetTeams {
			teams {
				nodes {
					id
					name
					key
				}
			}
		}`

	var data struct {
		Teams struct {
			Nodes []LinearTeam `json:"nodes"`
		} `json:"teams"`
	}
	if err := d.graphql(ctx, query, nil, &data); err != nil {
		return nil, err
	}

	return data.Teams.Nodes, nil
}

type issueInput struct {
	TeamID      string
	Title       string
	Description string
	AssigneeID  string
	Priority    int
	DueDate     string
}

type linearIssue struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	URL        string `json:"url"`
}

func (d *LinearDispatcher) createIssue(ctx context.Context, in issueInput) (linearIssue, error) {
	mutation := `
		mutation CreateIssue($input: IssueCreateInput!) {
			issueCreate(input: $input) {
				success
				issue {
					id
					identifier
					url
				}
			}
		}`

	input := map[string]any{
		"teamId":   in.TeamID,
		"title":    in.Title,
		"priority": in.Priority,
	}
	if in.Description != "" {
		input["description"] = in.Description
	}
	if in.AssigneeID != "" {
		input["assigneeId"] = in.AssigneeID
	}
	if in.DueDate != "" {
		input["dueDate"] = in.DueDate
	}

	var data struct {
		IssueCreate struct {
			Success bool        `json:"success"`
			Issue   linearIssue `json:"issue"`
		} `json:"issueCreate"`
	}
	if err := d.graphql(ctx, mutation, map[string]any{"input": input}, &data); err != nil {
		return linearIssue{}, err
	}

	if !data.IssueCreate.Success {
		return linearIssue{}, fmt.Errorf("issue create reported failure for %q", in.Title)
	}

	return data.IssueCreate.Issue, nil
}

// resolveAssigneeID looks up a Linear user id by email. Unresolved emails
// are not an error: the caller falls back to the default assignee.
func (d *LinearDispatcher) resolveAssigneeID(ctx context.Context, email string) string {
	query := `
		query GetUserByEmail($email: String!) {
			users(filter: { email: { eq: $email } }) {
				nodes {
					id
					email
					name
				}
			}
		}`

	var data struct {
		Users struct {
			Nodes []struct {
				ID string `json:"id"`
			} `json:"nodes"`
		} `json:"users"`
	}
	if err := d.graphql(ctx, query, map[string]any{"email": email}, &data); err != nil {
		log.Printf("linear: user lookup for %s failed: %v", email, err)
		return ""
	}

	if len(data.Users.Nodes) == 0 {
		return ""
	}
	return data.Users.Nodes[0].ID
}

func (d *LinearDispatcher) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	payload := map[string]any{"query": query}
	if variables != nil {
		payload["variables"] = variables
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return fmt.Errorf("encode graphql payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, buf)
	if err != nil {
		return fmt.Errorf("create graphql request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("linear request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read linear response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("linear api error: status %d body %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode linear response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("linear graphql error: %s", strings.Join(messages, ", "))
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode linear data: %w", err)
		}
	}

	return nil
}
