package server

import (
	"net/http"

	"github.com/example/hablo/internal/auth"
	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type sessionResponse struct {
	*auth.Session
	Progress any `json:"progress"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	session, err := s.identity.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	p, err := s.progress.Load(c.Request.Context(), session.User.ID, session.User.Email)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{Session: session, Progress: p})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	session, err := s.identity.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	p, err := s.progress.Load(c.Request.Context(), session.User.ID, session.User.Email)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, sessionResponse{Session: session, Progress: p})
}

// handleLogout ends the user's sessions, flushes progress and revokes the token
func (s *Server) handleLogout(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	s.games.EndAll(ctx, uid)
	if err := s.progress.Forget(ctx, uid); err != nil {
		s.log.Warn("progress not flushed on logout", "user_id", uid, "error", err)
	}
	if err := s.identity.Logout(ctx, c.GetString(tokenKey)); err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"ok": true})
}

func (s *Server) handleMe(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := s.identity.User(ctx, userID(c))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	p, err := s.progress.Load(ctx, user.ID, user.Email)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"user": user, "progress": p})
}

func (s *Server) handleNotifications(c *gin.Context) {
	var req struct {
		Enabled        bool   `json:"enabled"`
		Hour           *int   `json:"hour" binding:"required,min=0,max=23"`
		TelegramChatID *int64 `json:"telegram_chat_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx := c.Request.Context()
	if err := s.users.UpdateNotifications(ctx, userID(c), req.Enabled, *req.Hour, req.TelegramChatID); err != nil {
		s.respondErr(c, err)
		return
	}
	user, err := s.identity.User(ctx, userID(c))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"user": user})
}
