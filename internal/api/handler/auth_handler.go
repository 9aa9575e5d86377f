package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"loanbook/internal/api/handler/dto"
	"loanbook/internal/config"
	"loanbook/internal/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	cfg    config.AuthConfig
	now    func() time.Time
	logger *slog.Logger
}

func NewAuthHandler(cfg config.AuthConfig, l *slog.Logger) *AuthHandler {
	return &AuthHandler{
		cfg:    cfg,
		now:    time.Now,
		logger: l.With("component", "AuthHandler"),
	}
}

// GenerateBearerToken issues a signed token whose username claim becomes the
// author of notes added with it.
//
// @Summary Generate a JWT bearer token
// @Description Issues an HS256 token carrying the username claim, valid for 24 hours.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.TokenRequest true "username"
// @Success 200 {object} map[string]string "Token successfully generated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request parameters"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/token [post]
func (h *AuthHandler) GenerateBearerToken(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode request body", "error", err)
		respondError(w, r, h.logger, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		respondError(w, r, h.logger, apperrors.NewValidationError("username", "username is required"))
		return
	}

	expiresAt := h.now().Add(tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      expiresAt.Unix(),
	})
	tokenString, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		respondError(w, r, h.logger, fmt.Errorf("%w: failed to sign token: %w", apperrors.ErrInternalServer, err))
		return
	}

	h.logger.InfoContext(r.Context(), "Issued bearer token", "username", username)
	respondJSON(w, http.StatusOK, map[string]string{
		"token":     fmt.Sprintf("Bearer %s", tokenString),
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}
