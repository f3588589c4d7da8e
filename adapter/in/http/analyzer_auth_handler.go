package http

import (
	"errors"
	"net/url"
	"strings"

	"analyzer_server/core/port/in"
	"analyzer_server/core/service/auth"
	"analyzer_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler drives the authorization handshake: it issues consent URLs
// and completes the provider callback.
type AuthHandler struct {
	authService in.AuthService
	frontendURL string
}

func NewAuthHandler(authService in.AuthService, frontendURL string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (h *AuthHandler) Register(app fiber.Router) {
	app.Post("/start_auth", h.StartAuth)
	app.Get("/oauth2callback", h.Callback)
}

type startAuthRequest struct {
	Email string `json:"email"`
	Owner string `json:"owner"`
}

// StartAuth issues a consent URL for the given account.
func (h *AuthHandler) StartAuth(c *fiber.Ctx) error {
	var req startAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, 400, "invalid request body")
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		return ErrorResponse(c, 400, "email is required")
	}

	authReq, err := h.authService.Begin(c.Context(), req.Email, req.Owner)
	if err != nil {
		logger.WithAccount(req.Email).WithError(err).Error("failed to begin authorization")
		return AppErrorResponse(c, err)
	}

	logger.WithAccount(req.Email).Info("authorization started")
	return SuccessResponse(c, fiber.Map{
		"auth_url": authReq.AuthURL,
		"state":    authReq.State,
	})
}

// Callback completes the handshake. The browser lands here straight from
// the consent screen, so failures redirect to the frontend instead of
// returning a JSON error.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	errorParam := c.Query("error")

	if errorParam != "" {
		logger.Warn("authorization declined by provider: %s", errorParam)
		return h.redirectError(c, errorParam)
	}
	if code == "" {
		return h.redirectError(c, "missing_code")
	}
	if state == "" {
		return h.redirectError(c, "missing_state")
	}

	grant, err := h.authService.Complete(c.Context(), state, code)
	if err != nil {
		if errors.Is(err, auth.ErrUnknownState) {
			logger.Warn("callback carried an unknown state token")
			return h.redirectError(c, "unknown_state")
		}
		logger.WithError(err).Error("authorization completion failed")
		return h.redirectError(c, "oauth_failed")
	}

	logger.WithAccount(grant.Email).Info("authorization complete")
	return c.Redirect(h.frontendURL + "/?auth=success&email=" + url.QueryEscape(grant.Email))
}

func (h *AuthHandler) redirectError(c *fiber.Ctx, reason string) error {
	return c.Redirect(h.frontendURL + "/?auth=error&reason=" + url.QueryEscape(reason))
}
