package http

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/config"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/realtime"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/services"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/storage"
	"github.com/nocode-ecosdeliderazgo/Realtime-Meeting-Copilot/internal/tasks"
)

const sweepInterval = 5 * time.Minute

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	stop   chan struct{}
}

func NewServer(cfg config.Config) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	sessions, err := storage.NewSessionStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}

	store := realtime.NewMemoryStore()
	openaiSvc := services.NewOpenAIService(cfg)
	controller := realtime.NewController(store, openaiSvc, openaiSvc, cfg.MinAudioBytes, cfg.TranscribeFallback)

	linearSvc := tasks.NewLinearDispatcher(cfg)
	codaSvc := tasks.NewCodaDispatcher(cfg)
	pdfSvc := services.NewPDFService()
	shareSvc := services.NewShareService(cfg)

	stop := make(chan struct{})
	realtime.StartSweeper(store, cfg.SessionTTL, sweepInterval, stop)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger())
	engine.Use(MaxBodySize(cfg.MaxUploadBytes))
	engine.Use(CORS())

	api := NewAPI(cfg, controller, openaiSvc, sessions, linearSvc, codaSvc, pdfSvc, shareSvc)
	registerRoutes(engine, api)

	return &Server{engine: engine, cfg: cfg, stop: stop}, nil
}

func (s *Server) Run() error {
	defer close(s.stop)

	addr := fmt.Sprintf(":%s", s.cfg.Port)
	return s.engine.Run(addr)
}
