package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// expiresIn is the access token lifetime in seconds
func (h *AuthHandlers) expiresIn() int {
	return int(h.authService.AccessTTL() / time.Second)
}

type errorMapping struct {
	err    error
	status int
	msg    string
}

// fail writes the first mapping matching err, or fallback as a 500
func fail(c *gin.Context, err error, fallback string, mappings ...errorMapping) {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, ErrorResponse{Error: m.msg})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
}

// Challenge handles the challenge request
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
		return
	}

	token, nonce, err := h.authService.CreateChallenge(req.Address, req.ChainID)
	if err != nil {
		fail(c, err, "Failed to create challenge",
			errorMapping{core.ErrInvalidChallenge, http.StatusBadRequest, "Invalid address or chain"},
		)
		return
	}

	c.JSON(http.StatusOK, ChallengeResponse{Token: token, Nonce: nonce})
}

// Login exchanges a verification proof for tokens
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.authService.Login(c.Request.Context(), req.ChallengeToken, req.Proof())
	if err != nil {
		fail(c, err, "Authentication failed",
			errorMapping{core.ErrTokenExpired, http.StatusBadRequest, "Challenge token expired"},
			errorMapping{core.ErrInvalidToken, http.StatusBadRequest, "Invalid challenge token"},
			errorMapping{core.ErrInvalidChallenge, http.StatusBadRequest, "Proof does not match challenge"},
			errorMapping{core.ErrStaleProof, http.StatusBadRequest, "Proof timestamp outside challenge window"},
			errorMapping{core.ErrChallengeUsed, http.StatusConflict, "Challenge already used"},
			errorMapping{core.ErrAddressMismatch, http.StatusUnauthorized, "Signature does not match address"},
			errorMapping{core.ErrInvalidSignature, http.StatusUnauthorized, "Invalid signature"},
		)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    h.expiresIn(),
	})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err, "Failed to refresh tokens",
			errorMapping{core.ErrTokenExpired, http.StatusUnauthorized, "Refresh token expired"},
			errorMapping{core.ErrTokenInvalidated, http.StatusUnauthorized, "Refresh token has been invalidated"},
			errorMapping{core.ErrInvalidToken, http.StatusBadRequest, "Invalid refresh token"},
		)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    h.expiresIn(),
	})
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
		return
	}

	err := h.authService.Logout(c.Request.Context(), req.RefreshToken)
	if err != nil && !errors.Is(err, core.ErrTokenExpired) {
		fail(c, err, "Failed to logout",
			errorMapping{core.ErrInvalidToken, http.StatusBadRequest, "Invalid refresh token"},
		)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated wallet
func (h *AuthHandlers) Me(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Session not found in context"})
		return
	}

	c.JSON(http.StatusOK, MeResponse{Address: session.Address, ChainID: session.ChainID})
}

// Authorize reports success; the middleware has already validated the token
func (h *AuthHandlers) Authorize(c *gin.Context) {
	session, ok := sessionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Session not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"address":    session.Address,
	})
}
