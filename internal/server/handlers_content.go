package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/example/hablo/internal/flashcards"
	"github.com/example/hablo/pkg/models"
	"github.com/gin-gonic/gin"
)

const (
	defaultDueLimit = 20
	recentResults   = 10
)

// lessonView is a catalog entry as the learner sees it
type lessonView struct {
	models.Lesson
	Locked    bool `json:"locked"`
	Completed bool `json:"completed"`
	Playable  bool `json:"playable"`
}

func (s *Server) lessonViews(c *gin.Context, lessons []models.Lesson) ([]lessonView, bool) {
	id, _ := identityFrom(c)
	p, err := s.progress.Load(c.Request.Context(), id.UserID, id.Email)
	if err != nil {
		s.respondErr(c, err)
		return nil, false
	}
	views := make([]lessonView, 0, len(lessons))
	for _, l := range lessons {
		views = append(views, lessonView{
			Lesson:    l,
			Locked:    !s.catalog.Available(l, p.UnlockedLevels),
			Completed: p.HasCompleted(l.ID),
			Playable:  l.GameID != "",
		})
	}
	return views, true
}

// handleLearn lists every lesson grouped by kind
func (s *Server) handleLearn(c *gin.Context) {
	views, ok := s.lessonViews(c, s.catalog.Lessons())
	if !ok {
		return
	}
	groups := make(map[models.LessonKind][]lessonView)
	for _, v := range views {
		groups[v.Kind] = append(groups[v.Kind], v)
	}
	respondOK(c, gin.H{"lessons": views, "categories": groups})
}

// handlePractice lists the playable games
func (s *Server) handlePractice(c *gin.Context) {
	var games []models.Lesson
	for _, l := range s.catalog.Lessons() {
		if l.GameID != "" {
			games = append(games, l)
		}
	}
	views, ok := s.lessonViews(c, games)
	if !ok {
		return
	}
	respondOK(c, gin.H{"games": views})
}

func (s *Server) handleDictionary(c *gin.Context) {
	entries, err := s.dictionary.Lookup(c.Request.Context(), c.Param("word"))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"entries": entries})
}

func (s *Server) handleTopics(c *gin.Context) {
	topics, err := s.topics.GetAll(c.Request.Context())
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"topics": topics})
}

func (s *Server) handleTopicWords(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", errors.New("invalid topic id"))
		return
	}
	ctx := c.Request.Context()
	topic, err := s.topics.GetByID(ctx, id)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	words, err := s.words.GetByTopic(ctx, id)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"topic": topic, "words": words})
}

func (s *Server) handleDueCards(c *gin.Context) {
	var q struct {
		TopicID int64 `form:"topic_id" binding:"min=0"`
		Limit   int   `form:"limit" binding:"min=0,max=100"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultDueLimit
	}
	cards, err := s.flashcards.Due(c.Request.Context(), userID(c), q.TopicID, q.Limit)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"cards": cards})
}

func (s *Server) handleReview(c *gin.Context) {
	wordID, err := strconv.ParseInt(c.Param("wordID"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", errors.New("invalid word id"))
		return
	}
	var req struct {
		Quality *int `json:"quality" binding:"required,min=0,max=5"`
	}
	if !bindJSON(c, &req) {
		return
	}
	p, err := s.flashcards.Review(c.Request.Context(), userID(c), wordID, flashcards.Quality(*req.Quality))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, p)
}

func (s *Server) handleStats(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	games, err := s.statistics.GetUserStatistics(ctx, uid)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	recent, err := s.results.GetByUserID(ctx, uid, recentResults)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	cards, err := s.flashcards.Stats(ctx, uid)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	respondOK(c, gin.H{"games": games, "recent": recent, "flashcards": cards})
}
