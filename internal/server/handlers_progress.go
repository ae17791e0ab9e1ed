package server

import (
	"io"
	"net/http"

	"github.com/example/hablo/pkg/models"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleProgress(c *gin.Context) {
	id, _ := identityFrom(c)
	p, err := s.progress.Load(c.Request.Context(), id.UserID, id.Email)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, p)
}

// handleProgressStream pushes every change of the record as a server-sent event
func (s *Server) handleProgressStream(c *gin.Context) {
	ctx := c.Request.Context()
	updates, cancel, err := s.progress.Subscribe(ctx, userID(c))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case p, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("progress", p)
			return true
		}
	})
}

func (s *Server) handleScore(c *gin.Context) {
	var req struct {
		Points *int `json:"points" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	s.respondProgress(c)(s.progress.UpdateScore(c.Request.Context(), userID(c), *req.Points))
}

func (s *Server) handleLives(c *gin.Context) {
	var req struct {
		Delta *int `json:"delta" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	s.respondProgress(c)(s.progress.UpdateLives(c.Request.Context(), userID(c), *req.Delta))
}

func (s *Server) handleUnlock(c *gin.Context) {
	var req struct {
		LevelID string `json:"level_id" binding:"required,levelid"`
	}
	if !bindJSON(c, &req) {
		return
	}
	s.respondProgress(c)(s.progress.UnlockLevel(c.Request.Context(), userID(c), req.LevelID))
}

func (s *Server) handleComplete(c *gin.Context) {
	var req struct {
		LevelID string `json:"level_id" binding:"required,levelid"`
		Score   int    `json:"score"`
	}
	if !bindJSON(c, &req) {
		return
	}
	s.respondProgress(c)(s.progress.CompleteLevel(c.Request.Context(), userID(c), req.LevelID, req.Score))
}

func (s *Server) handleReset(c *gin.Context) {
	s.respondProgress(c)(s.progress.ResetProgress(c.Request.Context(), userID(c)))
}

func (s *Server) handleFlush(c *gin.Context) {
	if err := s.progress.Flush(c.Request.Context(), userID(c)); err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"ok": true})
}

func (s *Server) respondProgress(c *gin.Context) func(models.Progress, error) {
	return func(p models.Progress, err error) {
		if err != nil {
			s.respondErr(c, err)
			return
		}
		respondOK(c, p)
	}
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}
