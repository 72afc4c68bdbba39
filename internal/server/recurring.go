package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	recurringdomain "github.com/smallbiznis/followup/internal/recurring/domain"
	"github.com/smallbiznis/followup/pkg/db/pagination"
)

type createRecurringCallRequest struct {
	Endpoint  string          `json:"endpoint"`
	Method    string          `json:"method"`
	Payload   json.RawMessage `json:"payload"`
	NextCall  string          `json:"next_call"`
	CallDelay *float64        `json:"call_delay"`
	Retries   *int            `json:"retries"`
	OneShot   bool            `json:"one_shot"`
}

func (s *Server) CreateRecurringCall(c *gin.Context) {
	var req createRecurringCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	nextCall, err := parseOptionalTime(req.NextCall)
	if err != nil {
		AbortWithError(c, newValidationError("next_call", "invalid_next_call", "invalid next_call"))
		return
	}

	resp, err := s.recurringSvc.Create(c.Request.Context(), recurringdomain.CreateRequest{
		OwnerID:   actorFrom(c),
		Endpoint:  strings.TrimSpace(req.Endpoint),
		Method:    req.Method,
		Payload:   req.Payload,
		NextCall:  nextCall,
		CallDelay: req.CallDelay,
		Retries:   req.Retries,
		OneShot:   req.OneShot,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListRecurringCalls(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Owner string `form:"owner"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor := actorFrom(c)
	owner := strings.TrimSpace(query.Owner)
	if owner == "" {
		owner = actor
	}
	if owner != actor {
		AbortWithError(c, ErrForbidden)
		return
	}

	resp, err := s.recurringSvc.ListByOwner(c.Request.Context(), recurringdomain.ListRequest{
		OwnerID:    owner,
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Calls, "page_info": resp.PageInfo})
}

func (s *Server) GetRecurringCall(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := s.recurringSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp.OwnerID != actorFrom(c) {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelRecurringCall(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := s.recurringSvc.Cancel(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRecurringCallTransactions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	call, err := s.recurringSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if call.OwnerID != actorFrom(c) {
		AbortWithError(c, ErrNotFound)
		return
	}
	resp, err := s.transactionSvc.ListByRecurringCall(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
