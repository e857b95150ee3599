package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ambient-clock/internal/assistant"
)

// bindAI answers 503 for an unconfigured assistant before reading the body.
func (s *Server) bindAI(c *gin.Context, dst any) bool {
	if s.assistant == nil || !s.assistant.Configured() {
		writeError(c, assistant.ErrNotConfigured)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return false
	}
	return true
}

func (s *Server) weatherSummaryHandler(c *gin.Context) {
	var req assistant.SummaryRequest
	if !s.bindAI(c, &req) {
		return
	}
	summary, err := s.assistant.WeatherSummary(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) chatHandler(c *gin.Context) {
	var req assistant.ChatRequest
	if !s.bindAI(c, &req) {
		return
	}
	reply, err := s.assistant.Chat(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

func (s *Server) dailyBriefingHandler(c *gin.Context) {
	var req assistant.BriefingRequest
	if !s.bindAI(c, &req) {
		return
	}
	briefing, err := s.assistant.DailyBriefing(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"briefing": briefing})
}
