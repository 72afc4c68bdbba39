package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	followupdomain "github.com/smallbiznis/followup/internal/followup/domain"
)

type createFollowupRequest struct {
	Facility string          `json:"facility"`
	Payload  json.RawMessage `json:"payload"`
}

func (s *Server) CreateFollowupRequest(c *gin.Context) {
	var req createFollowupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.followupSvc.Create(c.Request.Context(), followupdomain.CreateRequest{
		Facility:    strings.TrimSpace(req.Facility),
		RequesterID: actorFrom(c),
		Payload:     req.Payload,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetFollowupRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := s.followupSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SubmitFollowupRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := s.followupSvc.SubmitByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateFollowupRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var params map[string]any
	if err := c.ShouldBindJSON(&params); err != nil || params == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.followupSvc.UpdateByID(c.Request.Context(), id, params)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteFollowupRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := s.followupSvc.DeleteByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListFollowupTransactions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := s.followupSvc.Get(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	resp, err := s.transactionSvc.ListByRequest(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func pathID(c *gin.Context) (snowflake.ID, bool) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}
