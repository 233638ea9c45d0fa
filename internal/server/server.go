package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askmynotes/backend/config"
	"github.com/askmynotes/backend/internal/convmem"
	"github.com/askmynotes/backend/internal/engine"
	"github.com/askmynotes/backend/internal/provider/openai"
	"github.com/askmynotes/backend/internal/telemetry"
	"github.com/askmynotes/backend/internal/vectorstore/qdrant"
	"github.com/askmynotes/backend/internal/voice"
)

// Server owns the HTTP surface over the RAG engine.
type Server struct {
	engine           *engine.Engine
	logger           *log.Logger
	telemetryEnabled bool
}

func New(eng *engine.Engine, telemetryEnabled bool) *Server {
	return &Server{
		engine:           eng,
		logger:           log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
		telemetryEnabled: telemetryEnabled,
	}
}

// Run wires the real collaborators from configuration and serves until
// the listener fails.
func Run(cfg *config.Config) error {
	if cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY not configured")
	}

	store := qdrant.New(qdrant.Config{
		URL:        cfg.Qdrant.URL(),
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		Timeout:    cfg.Qdrant.Timeout,
	})

	llm := openai.New(openai.Config{
		APIKey:          cfg.OpenAI.APIKey,
		ChatModel:       cfg.OpenAI.ChatModel,
		QuizModel:       cfg.OpenAI.QuizModel,
		EmbeddingModel:  cfg.OpenAI.EmbeddingModel,
		ChatTemperature: cfg.OpenAI.ChatTemperature,
		QuizTemperature: cfg.OpenAI.QuizTemperature,
		Timeout:         cfg.OpenAI.Timeout,
	})

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.New(prometheus.DefaultRegisterer)
	}

	eng, err := engine.New(cfg, engine.Deps{
		Store:    store,
		Embedder: llm,
		LLM:      llm,
		STT:      voice.NewDeepgram(cfg.Voice.DeepgramAPIKey, cfg.Voice.DeepgramModel, cfg.Voice.STTTimeout),
		TTS:      voice.NewElevenLabs(cfg.Voice.ElevenLabsAPIKey, cfg.Voice.ElevenLabsVoice, cfg.Voice.ElevenLabsModel, cfg.Voice.TTSTimeout),
		Sessions: convmem.New(cfg.Sessions.MaxTurns, cfg.Sessions.TTL),
		Metrics:  metrics,
	})
	if err != nil {
		return err
	}

	if err := store.EnsureCollection(context.Background(), cfg.OpenAI.EmbeddingDimension); err != nil {
		return fmt.Errorf("vector collection init failed: %w", err)
	}

	srv := New(eng, cfg.Telemetry.Enabled)
	e := srv.Echo()
	srv.logger.Printf("listening on %s", cfg.Server.Address)
	return e.Start(cfg.Server.Address)
}

// Echo builds the routed echo instance.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
	}))

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"detail": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if s.telemetryEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	e.POST("/upload", s.upload)
	e.POST("/chat", s.chat)
	e.POST("/study_mode", s.studyMode)
	e.POST("/voice-chat", s.voiceChat)
	e.POST("/sessions", s.createSession)
	e.DELETE("/sessions/:id", s.deleteSession)
	e.GET("/files/:subject_id", s.listFiles)
	e.GET("/subjects", s.listSubjects)
	e.DELETE("/reset", s.reset)

	return e
}

// httpError maps core errors onto status codes: input errors are the
// client's fault, everything else is a gateway-side fault.
func httpError(err error) error {
	switch {
	case errors.Is(err, engine.ErrUnsupportedFormat):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrEmptyDocument):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, engine.ErrTranscriptionEmpty):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
