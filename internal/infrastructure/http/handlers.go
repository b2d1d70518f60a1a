package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/0xcro3dile/pulsevents/internal/domain/entities"
	"github.com/0xcro3dile/pulsevents/internal/domain/usecases"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

type classifyRequest struct {
	Message string `json:"message" binding:"required"`
}

type classificationPayload struct {
	NeedsRetrieval bool     `json:"needs_retrieval"`
	Confidence     float64  `json:"confidence"`
	Reason         string   `json:"reason"`
	Tier           string   `json:"tier"`
	Keywords       []string `json:"keywords,omitempty"`
}

type chatResponse struct {
	SessionID      string                       `json:"session_id"`
	Answer         string                       `json:"answer"`
	Classification classificationPayload        `json:"classification"`
	Sources        []entities.RetrievedDocument `json:"sources"`
}

type historyResponse struct {
	SessionID string                 `json:"session_id"`
	Messages  []entities.ChatMessage `json:"messages"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Commune   string `json:"commune"`
	Documents int    `json:"documents"`
	Error     string `json:"error,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newClassificationPayload(result entities.ClassificationResult) classificationPayload {
	return classificationPayload{
		NeedsRetrieval: result.NeedsRetrieval,
		Confidence:     result.Confidence,
		Reason:         result.Reason,
		Tier:           result.Tier.String(),
		Keywords:       result.Keywords,
	}
}

func writeError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), RequestID: GetRequestID(c)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecases.ErrEmptyUtterance), errors.Is(err, usecases.ErrMissingSession):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index", gin.H{"City": s.city})
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := healthResponse{Status: "ok", Commune: s.city}
	status := http.StatusOK

	if s.index != nil {
		count, err := s.index.Count(c.Request.Context())
		if err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
		resp.Documents = count
	}
	c.JSON(status, resp)
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	resp, err := s.conversation.Turn(c.Request.Context(), entities.ChatRequest{
		SessionID: sessionID,
		Query:     req.Message,
	})
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}

	sources := resp.Sources
	if sources == nil {
		sources = []entities.RetrievedDocument{}
	}
	c.JSON(http.StatusOK, chatResponse{
		SessionID:      resp.SessionID,
		Answer:         resp.Answer,
		Classification: newClassificationPayload(resp.Classification),
		Sources:        sources,
	})
}

func (s *Server) handleClassify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(c, http.StatusBadRequest, usecases.ErrEmptyUtterance)
		return
	}

	result := s.gate.Classify(c.Request.Context(), req.Message)
	c.JSON(http.StatusOK, newClassificationPayload(result))
}

func (s *Server) handleHistory(c *gin.Context) {
	sessionID := c.Param("id")
	messages, err := s.conversation.History(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	if messages == nil {
		messages = []entities.ChatMessage{}
	}
	c.JSON(http.StatusOK, historyResponse{SessionID: sessionID, Messages: messages})
}

func (s *Server) handleReset(c *gin.Context) {
	sessionID := c.Param("id")
	if err := s.conversation.Reset(c.Request.Context(), sessionID); err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}
