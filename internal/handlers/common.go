package handlers

import (
	"context"
	"errors"
	"net/http"

	"golang-food-checkout/internal/middleware"
	"golang-food-checkout/internal/services"
	"golang-food-checkout/pkg/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// SessionProvider is the part of services.SessionService the handlers use.
type SessionProvider interface {
	Get(ctx context.Context, userID, sessionID string) (*services.Session, error)
	Save(ctx context.Context, session *services.Session) error
}

// respondError maps a service error onto a status code and an
// ErrorResponse.
func respondError(c *gin.Context, title string, err error) {
	kind := services.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case services.KindValidation:
		status = http.StatusBadRequest
	case services.KindBusiness:
		status = http.StatusUnprocessableEntity
	case services.KindSequence, services.KindStale, services.KindDuplicate:
		status = http.StatusConflict
	case services.KindTransport:
		status = http.StatusBadGateway
	default:
		if errors.Is(err, auth.ErrTokenNotFound) || errors.Is(err, auth.ErrTokenCorrupt) {
			status = http.StatusUnauthorized
			title = "Session expired"
		}
	}

	message := services.MessageOf(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = "unexpected error"
	}
	c.JSON(status, ErrorResponse{Error: title, Message: message, Kind: string(kind)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid request body",
		Message: err.Error(),
		Kind:    string(services.KindValidation),
	})
}

// sessionHandler is embedded by every handler that works on the caller's
// checkout session.
type sessionHandler struct {
	sessions SessionProvider
	logger   *zap.Logger
}

func (h sessionHandler) session(c *gin.Context) (*services.Session, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "Unauthorized",
			Message: "User ID not found",
		})
		return nil, false
	}

	session, err := h.sessions.Get(c.Request.Context(), userID, middleware.GetSessionID(c))
	if err != nil {
		respondError(c, "Failed to open checkout session", err)
		return nil, false
	}
	return session, true
}

// persist saves the session after a mutation. A failed save is logged; the
// in-memory session stays authoritative.
func (h sessionHandler) persist(c *gin.Context, session *services.Session) {
	if err := h.sessions.Save(c.Request.Context(), session); err != nil {
		h.logger.Warn("saving session snapshot",
			zap.String("user_id", session.UserID),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}
