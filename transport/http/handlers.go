package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/emberbase/auth"
	"github.com/gin-gonic/gin"
)

// CeremonyHandlers contains the HTTP handlers for the ceremony endpoints.
type CeremonyHandlers struct {
	engine *auth.Engine
}

// NewCeremonyHandlers creates handlers bound to the engine.
func NewCeremonyHandlers(engine *auth.Engine) *CeremonyHandlers {
	return &CeremonyHandlers{engine: engine}
}

// Begin starts a sign-in or sign-up ceremony.
func (h *CeremonyHandlers) Begin(c *gin.Context) {
	var req struct {
		Flow   string   `json:"flow" binding:"required"`
		Scopes []string `json:"scopes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	step, err := h.engine.Begin(c.Request.Context(), auth.Flow(req.Flow), req.Scopes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// SubmitPrompt answers the pending prompt of either flow.
func (h *CeremonyHandlers) SubmitPrompt(c *gin.Context) {
	var req struct {
		ComponentID string `json:"component_id" binding:"required"`
		Value       any    `json:"value"`
		State       string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	step, err := h.engine.SubmitPrompt(c.Request.Context(), req.ComponentID, req.Value, req.State)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// SendPrompt triggers the out-of-band challenge of a pending sign-in
// factor.
func (h *CeremonyHandlers) SendPrompt(c *gin.Context) {
	var req struct {
		ComponentID string `json:"component_id" binding:"required"`
		State       string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.engine.SendPrompt(c.Request.Context(), req.ComponentID, req.State); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendValidationCode pushes a confirmation code for the component the
// sign-up ceremony is validating.
func (h *CeremonyHandlers) SendValidationCode(c *gin.Context) {
	var req struct {
		State string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.engine.SendValidationCode(c.Request.Context(), req.State); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitValidationCode answers the pending validation.
func (h *CeremonyHandlers) SubmitValidationCode(c *gin.Context) {
	var req struct {
		Value any    `json:"value"`
		State string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	step, err := h.engine.SubmitValidationCode(c.Request.Context(), req.Value, req.State)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// RefreshToken exchanges a refresh token for a fresh triple.
func (h *CeremonyHandlers) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	tokens, err := h.engine.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// SignOut revokes the session behind the bearer access token.
func (h *CeremonyHandlers) SignOut(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	if err := h.engine.SignOut(c.Request.Context(), strings.TrimPrefix(header, "Bearer ")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Session reports the verified context behind the bearer token. The guard
// middleware has already introspected it.
func (h *CeremonyHandlers) Session(c *gin.Context) {
	res, ok := IntrospectionFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"identity_id":   res.IdentityID,
		"session_id":    res.SessionID,
		"scope":         res.Scope,
		"authorized_at": res.AuthorizedAt,
	})
}

// writeError maps the engine's error taxonomy onto status codes. Messages
// stay generic so responses never leak verification internals.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	case errors.Is(err, auth.ErrSubmitPromptRejected):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "prompt rejected"})
	case errors.Is(err, auth.ErrSubmitValidationCodeRejected):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "validation code rejected"})
	case errors.Is(err, auth.ErrRefreshToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
	case errors.Is(err, auth.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, auth.ErrUnknownComponent):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown component"})
	case errors.Is(err, auth.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ceremony state"})
	case errors.Is(err, auth.ErrSendPrompt), errors.Is(err, auth.ErrSendValidationCode):
		c.JSON(http.StatusBadGateway, gin.H{"error": "delivery failed"})
	case errors.Is(err, auth.ErrBackendUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
