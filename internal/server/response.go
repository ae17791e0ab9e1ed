package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/example/hablo/internal/auth"
	"github.com/example/hablo/internal/content"
	"github.com/example/hablo/internal/database"
	"github.com/example/hablo/internal/dictionary"
	"github.com/example/hablo/internal/flashcards"
	"github.com/example/hablo/internal/game"
	"github.com/example/hablo/internal/progress"
	"github.com/example/hablo/internal/speech"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},
	{auth.ErrTokenRevoked, http.StatusUnauthorized, "unauthorized"},
	{auth.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{auth.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
	{auth.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{content.ErrUnknownLesson, http.StatusNotFound, "unknown_lesson"},
	{game.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{game.ErrUnknownGame, http.StatusNotFound, "unknown_game"},
	{game.ErrLessonLocked, http.StatusForbidden, "lesson_locked"},
	{game.ErrSessionOver, http.StatusConflict, "session_over"},
	{game.ErrInvalidAnswer, http.StatusBadRequest, "invalid_answer"},
	{game.ErrNotTimed, http.StatusBadRequest, "not_timed"},
	{game.ErrNoWords, http.StatusUnprocessableEntity, "no_words"},
	{flashcards.ErrInvalidQuality, http.StatusBadRequest, "invalid_quality"},
	{dictionary.ErrNotFound, http.StatusNotFound, "definition_not_found"},
	{dictionary.ErrUnavailable, http.StatusBadGateway, "dictionary_unavailable"},
	{speech.ErrNoSpeech, http.StatusUnprocessableEntity, "no-speech"},
	{speech.ErrUnavailable, http.StatusServiceUnavailable, "not-allowed"},
	{progress.ErrPersisterClosed, http.StatusServiceUnavailable, "shutting_down"},
	{database.ErrNotFound, http.StatusNotFound, "not_found"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// respondErr maps a domain error to its status and code. Unknown errors are
// logged and reported without their message.
func (s *Server) respondErr(c *gin.Context, err error) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			respondError(c, e.status, e.code, err)
			return
		}
	}
	s.log.Error("request failed", "path", c.FullPath(), "error", err)
	respondError(c, http.StatusInternalServerError, "internal", errors.New("internal server error"))
}
