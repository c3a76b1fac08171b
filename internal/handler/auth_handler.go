package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anasy333/krishisat-gateway/internal/audit"
	"github.com/anasy333/krishisat-gateway/internal/dto"
	"github.com/anasy333/krishisat-gateway/internal/login"
	"github.com/anasy333/krishisat-gateway/internal/middleware"
	"github.com/anasy333/krishisat-gateway/internal/session"
	"github.com/anasy333/krishisat-gateway/internal/upstream"
	"github.com/anasy333/krishisat-gateway/pkg/logger"
	"github.com/anasy333/krishisat-gateway/pkg/response"
)

// AuthHandler serves the phone + one-time-code login flow.
type AuthHandler struct {
	flow      *login.Flow
	store     *session.Store
	publisher audit.Publisher
	log       *logger.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(flow *login.Flow, store *session.Store, publisher audit.Publisher) *AuthHandler {
	return &AuthHandler{
		flow:      flow,
		store:     store,
		publisher: publisher,
		log:       logger.Get().With(zap.String("component", "auth_handler")),
	}
}

// SendOTP requests a one-time code
// POST /api/auth/send-otp
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_PHONE", err.Error(), "")
		return
	}

	ctx := c.Request.Context()
	if err := h.flow.SendCode(ctx, req.Phone); err != nil {
		switch {
		case errors.Is(err, login.ErrActionInProgress):
			response.Conflict(c, "SUBMISSION_IN_PROGRESS", "Code request already being processed")
		case errors.Is(err, upstream.ErrUserNotFound):
			response.NotFound(c, "No account for this phone number")
		case errors.Is(err, upstream.ErrUnavailable):
			response.BadGateway(c, "Code delivery service unavailable, try again")
		default:
			response.InternalError(c, err)
		}
		return
	}

	h.publisher.Publish(ctx, audit.Event{
		Type:      audit.EventCodeSent,
		SessionID: middleware.SessionFrom(c).ID,
		Phone:     req.Phone,
	})

	response.Success(c, dto.SendOTPResponse{
		Sent:  true,
		State: string(h.flow.State(req.Phone)),
	})
}

// VerifyOTP exchanges the code for a session
// POST /api/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), "")
		return
	}

	ctx := c.Request.Context()
	sid := middleware.SessionFrom(c).ID

	result, err := h.flow.Verify(ctx, req.Phone, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, login.ErrActionInProgress):
			response.Conflict(c, "SUBMISSION_IN_PROGRESS", "Verification already being processed")
		case errors.Is(err, login.ErrNoPendingCode):
			response.Error(c, http.StatusBadRequest, "CODE_NOT_REQUESTED",
				"Request a code before verifying", "")
		case errors.Is(err, upstream.ErrInvalidCode):
			h.publisher.Publish(ctx, audit.Event{
				Type:      audit.EventLoginFailed,
				SessionID: sid,
				Phone:     req.Phone,
				Reason:    "invalid_code",
			})
			response.Error(c, http.StatusUnauthorized, "INVALID_CODE",
				"Wrong or expired code", "")
		case errors.Is(err, upstream.ErrUserNotFound):
			response.NotFound(c, "No account for this phone number")
		case errors.Is(err, upstream.ErrUnavailable):
			response.BadGateway(c, "Verification service unavailable, try again")
		default:
			response.InternalError(c, err)
		}
		return
	}

	if err := h.store.Login(ctx, sid, result.Token, result.Identity); err != nil {
		h.log.Error("failed to persist session after verification",
			zap.String("sid", sid),
			zap.Error(err))
		response.InternalError(c, err)
		return
	}

	h.publisher.Publish(ctx, audit.Event{
		Type:      audit.EventLoginSucceeded,
		SessionID: sid,
		UserID:    result.Identity.ID,
		Phone:     req.Phone,
		Role:      string(result.Identity.Role),
	})

	response.Success(c, dto.VerifyOTPResponse{
		User:        dto.NewIdentityResponse(result.Identity),
		RedirectTo:  result.Identity.Role.DefaultPath(),
		SessionType: "cookie",
	})
}

// Logout clears the session
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	s := middleware.SessionFrom(c)
	ctx := c.Request.Context()

	if err := h.store.Logout(ctx, s.ID); err != nil {
		response.InternalError(c, err)
		return
	}

	event := audit.Event{Type: audit.EventLogout, SessionID: s.ID}
	if s.Identity != nil {
		event.UserID = s.Identity.ID
		event.Role = string(s.Identity.Role)
	}
	h.publisher.Publish(ctx, event)

	response.Success(c, gin.H{"logged_out": true})
}

// Me returns the restored identity
// GET /api/auth/me (guarded, any role)
func (h *AuthHandler) Me(c *gin.Context) {
	s := middleware.SessionFrom(c)
	if s.Identity == nil {
		// Guard admits only authenticated sessions; this is a wiring bug
		response.Unauthorized(c, "No identity in session")
		return
	}
	response.Success(c, dto.NewIdentityResponse(s.Identity))
}
