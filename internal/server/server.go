package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/hablo/internal/content"
	"github.com/example/hablo/internal/logger"
	"github.com/example/hablo/internal/speech"
	"github.com/gin-gonic/gin"
)

// Deps are the services the API exposes
type Deps struct {
	Identity   Identity
	Progress   ProgressStore
	Games      Games
	Catalog    *content.Catalog
	Recognizer speech.Recognizer
	Dictionary Dictionary
	Flashcards Flashcards
	Topics     Topics
	Words      Words
	Users      Users
	Statistics Statistics
	Results    Results
}

// Server is the JSON HTTP API
type Server struct {
	opts       Options
	identity   Identity
	progress   ProgressStore
	games      Games
	catalog    *content.Catalog
	recognizer speech.Recognizer
	dictionary Dictionary
	flashcards Flashcards
	topics     Topics
	words      Words
	users      Users
	statistics Statistics
	results    Results
	log        *logger.Logger

	engine *gin.Engine
	http   *http.Server
}

// New builds the router
func New(opts Options, deps Deps, log *logger.Logger) (*Server, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}
	if opts.MaxAudioBytes <= 0 {
		opts.MaxAudioBytes = 10 << 20
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if deps.Recognizer == nil {
		deps.Recognizer = speech.Disabled{}
	}

	s := &Server{
		opts:       opts,
		identity:   deps.Identity,
		progress:   deps.Progress,
		games:      deps.Games,
		catalog:    deps.Catalog,
		recognizer: deps.Recognizer,
		dictionary: deps.Dictionary,
		flashcards: deps.Flashcards,
		topics:     deps.Topics,
		words:      deps.Words,
		users:      deps.Users,
		statistics: deps.Statistics,
		results:    deps.Results,
		log:        log.With("service", "http"),
	}
	s.engine = s.routes()
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
	}
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	if s.opts.Mode == "prod" || s.opts.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(corsMiddleware(s.opts.CORSOrigins))
	}

	r.GET("/", s.handleRoot)
	r.GET("/healthcheck", s.handleHealth)

	api := r.Group("/api")
	api.POST("/signup", s.handleSignup)
	api.POST("/login", s.handleLogin)

	protected := api.Group("/")
	protected.Use(s.requireAuth())
	{
		protected.POST("/logout", s.handleLogout)
		protected.GET("/me", s.handleMe)
		protected.PUT("/me/notifications", s.handleNotifications)

		protected.GET("/learn", s.handleLearn)
		protected.GET("/practice", s.handlePractice)

		protected.GET("/progress", s.handleProgress)
		protected.GET("/progress/stream", s.handleProgressStream)
		protected.POST("/progress/score", s.handleScore)
		protected.POST("/progress/lives", s.handleLives)
		protected.POST("/progress/unlock", s.handleUnlock)
		protected.POST("/progress/complete", s.handleComplete)
		protected.POST("/progress/reset", s.handleReset)
		protected.POST("/progress/flush", s.handleFlush)

		protected.POST("/games/:lesson/sessions", s.handleStartSession)
		protected.GET("/sessions/:id", s.handleSessionState)
		protected.POST("/sessions/:id/answer", s.handleAnswer)
		protected.POST("/sessions/:id/timeout", s.handleTimeout)
		protected.POST("/sessions/:id/restart", s.handleRestart)
		protected.DELETE("/sessions/:id", s.handleEndSession)

		protected.POST("/speech/match", s.handleSpeechMatch)
		protected.POST("/speech/recognize", s.handleRecognize)
		protected.GET("/speech/utterance", s.handleUtterance)

		protected.GET("/dictionary/:word", s.handleDictionary)

		protected.GET("/vocabulary/topics", s.handleTopics)
		protected.GET("/vocabulary/topics/:id/words", s.handleTopicWords)
		protected.GET("/flashcards/due", s.handleDueCards)
		protected.POST("/flashcards/:wordID/review", s.handleReview)

		protected.GET("/stats", s.handleStats)
	}
	return r
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", "addr", s.opts.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleRoot(c *gin.Context) {
	respondOK(c, gin.H{"name": "hablo", "version": s.opts.Version})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
