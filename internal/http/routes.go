package http

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/config"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/domain"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/realtime"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/services"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/storage"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/tasks"
)

// Summarizer produces the executive summary stored with a finished session.
type Summarizer interface {
	SummarizeMeeting(ctx context.Context, transcript string) (string, error)
}

// LinearClient is the slice of the Linear integration the handlers need.
type LinearClient interface {
	Dispatch(ctx context.Context, items []domain.ActionItem, sessionID string) []domain.DispatchResult
	Teams(ctx context.Context) ([]tasks.LinearTeam, error)
}

// CodaClient is the slice of the Coda integration the handlers need.
type CodaClient interface {
	Dispatch(ctx context.Context, items []domain.ActionItem, sessionID string) []domain.DispatchResult
	TableInfo(ctx context.Context) (tasks.CodaTableInfo, error)
	ValidateTable(ctx context.Context) (tasks.CodaValidation, error)
}

type API struct {
	cfg        config.Config
	controller *realtime.Controller
	summarizer Summarizer
	sessions   *storage.SessionStore
	linear     LinearClient
	coda       CodaClient
	pdf        *services.PDFService
	share      *services.ShareService
}

func NewAPI(cfg config.Config, controller *realtime.Controller, summarizer Summarizer, sessions *storage.SessionStore, linear LinearClient, coda CodaClient, pdf *services.PDFService, share *services.ShareService) *API {
	return &API{cfg: cfg, controller: controller, summarizer: summarizer, sessions: sessions, linear: linear, coda: coda, pdf: pdf, share: share}
}

func registerRoutes(r *gin.Engine, api *API) {
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)

		apiGroup.POST("/realtime", api.handleRealtime)
		apiGroup.POST("/summary", api.handleSummarize)

		apiGroup.POST("/tasks/linear", api.handleDispatchLinear)
		apiGroup.GET("/tasks/linear", api.handleLinearStatus)
		apiGroup.POST("/tasks/coda", api.handleDispatchCoda)
		apiGroup.GET("/tasks/coda", api.handleCodaStatus)

		apiGroup.POST("/sessions", api.handleSaveSession)
		apiGroup.GET("/sessions", api.handleListSessions)
		apiGroup.GET("/sessions/stats", api.handleSessionStats)
		apiGroup.DELETE("/sessions/:id", api.handleDeleteSession)
		apiGroup.POST("/sessions/:id/pdf", api.handleGenerateMinutes)
		apiGroup.POST("/sessions/:id/share", api.handleShareSession)
	}

	r.GET("/pdf/:id", api.handleServeMinutes)
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ---- realtime lifecycle --------------------------------------------------

type realtimeMessage struct {
	Type      string `json:"type" binding:"required"`
	SessionID string `json:"sessionId"`
	AudioData string `json:"audioData"`
	MimeType  string `json:"mimeType"`
}

func (a *API) handleRealtime(c *gin.Context) {
	var msg realtimeMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	switch msg.Type {
	case "start_session":
		sessionID := a.controller.StartSession()
		c.JSON(http.StatusOK, gin.H{
			"type":      "session_started",
			"sessionId": sessionID,
			"timestamp": time.Now().UnixMilli(),
		})

	case "audio_chunk":
		if err := a.cfg.RequireTranscription(); err != nil {
			respondError(c, http.StatusInternalServerError, err)
			return
		}

		audio, err := base64.StdEncoding.DecodeString(msg.AudioData)
		if err != nil {
			respondMessage(c, http.StatusBadRequest, "audioData is not valid base64")
			return
		}

		event, err := a.controller.AudioChunk(c.Request.Context(), msg.SessionID, audio, msg.MimeType)
		if errors.Is(err, realtime.ErrInvalidSession) {
			respondMessage(c, http.StatusBadRequest, "invalid session")
			return
		}
		if err != nil {
			respondError(c, http.StatusBadGateway, err)
			return
		}

		data := gin.H{
			"text":       event.Text,
			"confidence": event.Confidence,
		}
		if event.FullTranscript != "" {
			data["fullTranscript"] = event.FullTranscript
		}
		if event.Degraded {
			data["degraded"] = true
			data["error"] = event.Error
		}

		c.JSON(http.StatusOK, gin.H{
			"type":      event.Type,
			"data":      data,
			"timestamp": time.Now().UnixMilli(),
		})

	case "stop_session":
		if err := a.cfg.RequireTranscription(); err != nil {
			respondError(c, http.StatusInternalServerError, err)
			return
		}

		result, err := a.controller.StopSession(c.Request.Context(), msg.SessionID)
		if errors.Is(err, realtime.ErrInvalidSession) {
			respondMessage(c, http.StatusBadRequest, "invalid session")
			return
		}
		if err != nil {
			respondError(c, http.StatusInternalServerError, err)
			return
		}

		payload := gin.H{
			"type":           realtime.EventActionItems,
			"data":           result.Items,
			"fullTranscript": result.FullTranscript,
			"timestamp":      time.Now().UnixMilli(),
		}
		if result.Degraded {
			payload["degraded"] = true
			payload["error"] = result.Error
		}

		c.JSON(http.StatusOK, payload)

	default:
		respondMessage(c, http.StatusBadRequest, "unsupported message type")
	}
}

type summaryRequest struct {
	Transcript string `json:"transcript" binding:"required"`
}

func (a *API) handleSummarize(c *gin.Context) {
	if err := a.cfg.RequireTranscription(); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	summary, err := a.summarizer.SummarizeMeeting(c.Request.Context(), req.Transcript)
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// ---- task dispatch -------------------------------------------------------

type dispatchRequest struct {
	Items     []domain.ActionItem `json:"items" binding:"required"`
	SessionID string              `json:"sessionId"`
}

func (a *API) bindDispatchRequest(c *gin.Context) (dispatchRequest, bool) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return dispatchRequest{}, false
	}

	if len(req.Items) == 0 {
		respondMessage(c, http.StatusBadRequest, "no items provided")
		return dispatchRequest{}, false
	}

	for i, item := range req.Items {
		if strings.TrimSpace(item.Title) == "" {
			respondMessage(c, http.StatusBadRequest, "item "+strconv.Itoa(i)+" has no title")
			return dispatchRequest{}, false
		}
	}

	req.Items = domain.NormalizeActionItems(req.Items)
	return req, true
}

func dispatchStatus(results []domain.DispatchResult) int {
	for _, r := range results {
		if r.Success {
			return http.StatusOK
		}
	}
	return http.StatusBadGateway
}

func (a *API) handleDispatchLinear(c *gin.Context) {
	if err := a.cfg.RequireLinear(); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	req, ok := a.bindDispatchRequest(c)
	if !ok {
		return
	}

	results := a.linear.Dispatch(c.Request.Context(), req.Items, req.SessionID)
	c.JSON(dispatchStatus(results), gin.H{"results": results})
}

func (a *API) handleLinearStatus(c *gin.Context) {
	if err := a.cfg.RequireLinear(); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	teams, err := a.linear.Teams(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"defaultTeamId":  a.cfg.LinearTeamID,
		"availableTeams": teams,
		"status":         "connected",
	})
}

func (a *API) handleDispatchCoda(c *gin.Context) {
	if err := a.cfg.RequireCoda(); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	req, ok := a.bindDispatchRequest(c)
	if !ok {
		return
	}

	results := a.coda.Dispatch(c.Request.Context(), req.Items, req.SessionID)
	c.JSON(dispatchStatus(results), gin.H{"results": results})
}

func (a *API) handleCodaStatus(c *gin.Context) {
	if err := a.cfg.RequireCoda(); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	info, err := a.coda.TableInfo(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}

	validation, err := a.coda.ValidateTable(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"table":      info,
		"validation": validation,
		"status":     "connected",
	})
}

// ---- session persistence -------------------------------------------------

type saveSessionRequest struct {
	Title       string                     `json:"title"`
	Summary     string                     `json:"summary" binding:"required"`
	ActionItems []domain.ActionItem        `json:"actionItems"`
	Transcript  []domain.TranscriptSegment `json:"transcript"`
}

func (a *API) handleSaveSession(c *gin.Context) {
	var req saveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	record := domain.SessionRecord{
		Title:       req.Title,
		Summary:     req.Summary,
		ActionItems: domain.NormalizeActionItems(req.ActionItems),
		Transcript:  req.Transcript,
	}

	saved, err := a.sessions.Save(record)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"sessionId": saved.ID,
		"session": gin.H{
			"id":                 saved.ID,
			"title":              saved.Title,
			"actionItemsCount":   len(saved.ActionItems),
			"transcriptSegments": len(saved.Transcript),
		},
	})
}

func (a *API) handleListSessions(c *gin.Context) {
	if sessionID := c.Query("sessionId"); sessionID != "" {
		record, err := a.sessions.Get(sessionID)
		if errors.Is(err, storage.ErrSessionNotFound) {
			respondMessage(c, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			respondError(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": record})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	entries, total, err := a.sessions.List(page, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": entries,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

func (a *API) handleSessionStats(c *gin.Context) {
	stats, err := a.sessions.Stats()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (a *API) handleDeleteSession(c *gin.Context) {
	err := a.sessions.Delete(c.Param("id"))
	if errors.Is(err, storage.ErrSessionNotFound) {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ---- minutes PDF & sharing ----------------------------------------------

func (a *API) handleGenerateMinutes(c *gin.Context) {
	sessionID := c.Param("id")
	record, err := a.sessions.Get(sessionID)
	if errors.Is(err, storage.ErrSessionNotFound) {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	pdfPath := a.sessions.PDFPath(sessionID)
	if err := a.pdf.GenerateMinutes(record, pdfPath); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pdfPath": pdfPath})
}

func (a *API) handleShareSession(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := a.sessions.Get(sessionID); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			respondMessage(c, http.StatusNotFound, "session not found")
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	if _, err := os.Stat(a.sessions.PDFPath(sessionID)); err != nil {
		respondMessage(c, http.StatusBadRequest, "no pdf available for this session")
		return
	}

	url, expiresAt, err := a.share.Generate(sessionID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "expiresAt": expiresAt.UTC()})
}

func (a *API) handleServeMinutes(c *gin.Context) {
	sessionID := c.Param("id")
	expiresParam := c.Query("exp")
	signature := c.Query("sig")

	if expiresParam == "" || signature == "" {
		respondMessage(c, http.StatusBadRequest, "missing signature")
		return
	}

	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid expiration")
		return
	}

	if expires < time.Now().Unix() {
		respondMessage(c, http.StatusGone, "link expired")
		return
	}

	path := c.Request.URL.Path
	if !a.share.Validate(path, expires, signature) {
		respondMessage(c, http.StatusForbidden, "invalid signature")
		return
	}

	pdfPath := a.sessions.PDFPath(sessionID)
	if _, err := os.Stat(pdfPath); err != nil {
		respondMessage(c, http.StatusNotFound, "pdf not found")
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(pdfPath, filepath.Base(pdfPath))
}

func respondError(c *gin.Context, status int, err error) {
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
