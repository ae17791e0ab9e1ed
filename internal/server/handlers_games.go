package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/example/hablo/internal/game"
	"github.com/example/hablo/internal/speech"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleStartSession(c *gin.Context) {
	state, err := s.games.Start(c.Request.Context(), userID(c), c.Param("lesson"))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, state)
}

func (s *Server) handleSessionState(c *gin.Context) {
	state, err := s.games.State(userID(c), c.Param("id"))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, state)
}

func (s *Server) handleAnswer(c *gin.Context) {
	var a game.Answer
	if !bindJSON(c, &a) {
		return
	}
	out, err := s.games.Answer(c.Request.Context(), userID(c), c.Param("id"), a)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, out)
}

func (s *Server) handleTimeout(c *gin.Context) {
	out, err := s.games.Timeout(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, out)
}

func (s *Server) handleRestart(c *gin.Context) {
	state, err := s.games.Restart(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, state)
}

func (s *Server) handleEndSession(c *gin.Context) {
	if err := s.games.End(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		s.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSpeechMatch(c *gin.Context) {
	var req struct {
		Transcript string   `json:"transcript"`
		Candidates []string `json:"candidates" binding:"required,min=1"`
	}
	if !bindJSON(c, &req) {
		return
	}
	respondOK(c, gin.H{
		"match":     speech.BestMatch(req.Transcript, req.Candidates),
		"threshold": speech.AcceptThreshold,
	})
}

// handleRecognize transcribes an uploaded clip. The audio comes as the
// "audio" multipart field or as the raw body. With a session_id the
// transcript is also submitted as that session's answer.
func (s *Server) handleRecognize(c *gin.Context) {
	audio, mimeType, err := s.readAudio(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_audio", err)
		return
	}

	ctx := c.Request.Context()
	transcript, err := s.recognizer.Recognize(ctx, audio, mimeType)
	if err != nil {
		s.log.Debug("recognition failed", "user_id", userID(c), "code", speech.ErrorCode(err), "error", err)
		if errors.Is(err, speech.ErrNoSpeech) || errors.Is(err, speech.ErrUnavailable) {
			s.respondErr(c, err)
			return
		}
		respondError(c, http.StatusBadGateway, speech.ErrorCode(err), err)
		return
	}

	resp := gin.H{"transcript": transcript}
	if sessionID := c.Query("session_id"); sessionID != "" {
		out, err := s.games.Answer(ctx, userID(c), sessionID, game.Answer{Transcript: transcript.Text})
		if err != nil {
			s.respondErr(c, err)
			return
		}
		resp["outcome"] = out
	}
	respondOK(c, resp)
}

func (s *Server) readAudio(c *gin.Context) ([]byte, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxAudioBytes)

	if fh, err := c.FormFile("audio"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", err
		}
		return nonEmpty(data, fh.Header.Get("Content-Type"))
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, "", err
	}
	return nonEmpty(data, c.ContentType())
}

func nonEmpty(data []byte, mimeType string) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty audio")
	}
	return data, mimeType, nil
}

func (s *Server) handleUtterance(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		respondError(c, http.StatusBadRequest, "invalid_request", errors.New("text is required"))
		return
	}
	u := speech.NewUtterance(text)
	if voice := c.Query("voice"); voice != "" {
		u = u.WithVoice(voice)
	}
	respondOK(c, u)
}
