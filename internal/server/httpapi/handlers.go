package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avezhnov/ctfdeck/internal/common"
	"github.com/avezhnov/ctfdeck/internal/logging"
	"github.com/avezhnov/ctfdeck/internal/server/models"
	"github.com/avezhnov/ctfdeck/internal/server/ratelimit"
	"github.com/avezhnov/ctfdeck/internal/server/services"
)

// Unknown identifier, wrong password, and disabled account all get this
// exact message, so the endpoint leaks nothing about which one it was.
const msgInvalidCredentials = "invalid username/email or password"

type handler struct {
	users   *services.UserService
	limiter ratelimit.Limiter
	secret  []byte
	logger  logging.Logger
}

type userResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName,omitempty"`
	LastName      string    `json:"lastName,omitempty"`
	Type          string    `json:"type"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Type:          u.Type,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

func apiError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": message})
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "ctfdeck-accounts"})
}

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_INPUT", "username, email and password are required")
		return
	}

	user, err := h.users.Register(c.Request.Context(), services.RegisterRequest{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			apiError(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		case errors.Is(err, common.ErrorAlreadyExists):
			apiError(c, http.StatusConflict, "ACCOUNT_EXISTS", "an account with this username or email already exists")
		default:
			h.internalError(c, "register", err)
		}
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

type activateRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *handler) activate(c *gin.Context) {
	var token string
	if c.Request.Method == http.MethodGet {
		// emailed link
		token = c.Query("token")
	} else {
		var req activateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apiError(c, http.StatusBadRequest, "INVALID_INPUT", "token is required")
			return
		}
		token = req.Token
	}
	if token == "" {
		apiError(c, http.StatusBadRequest, "INVALID_INPUT", "token is required")
		return
	}

	if err := h.users.Activate(c.Request.Context(), token); err != nil {
		switch {
		case errors.Is(err, common.ErrTokenExpired):
			apiError(c, http.StatusBadRequest, "TOKEN_EXPIRED", "activation link has expired")
		case errors.Is(err, common.ErrInvalidToken):
			apiError(c, http.StatusBadRequest, "INVALID_TOKEN", "activation link is invalid or already used")
		default:
			h.internalError(c, "activate", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "activated"})
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken        string `json:"accessToken"`
	RefreshToken       string `json:"refreshToken"`
	MustChangePassword bool   `json:"mustChangePassword,omitempty"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_INPUT", "identifier and password are required")
		return
	}

	ip := c.ClientIP()
	allowed, err := h.limiter.Allow(c.Request.Context(), ip)
	if err != nil {
		h.logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		c.Header("Retry-After", strconv.Itoa(int(ratelimit.DefaultLockDuration.Seconds())))
		apiError(c, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "too many failed logins, try again later")
		return
	}

	res, err := h.users.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrAccountInactive):
			_ = h.limiter.RecordFailure(c.Request.Context(), ip)
			apiError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", msgInvalidCredentials)
		case errors.Is(err, common.ErrDuplicateAccount):
			h.logger.Error(c.Request.Context(), "duplicate accounts for login identifier", "identifier", req.Identifier)
			apiError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		default:
			h.internalError(c, "login", err)
		}
		return
	}

	_ = h.limiter.Reset(c.Request.Context(), ip)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:        res.Tokens.AccessToken,
		RefreshToken:       res.Tokens.RefreshToken,
		MustChangePassword: res.MustChangePassword,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h *handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_INPUT", "refreshToken is required")
		return
	}

	pair, err := h.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRefreshTokenExpired):
			apiError(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "refresh token has expired")
		case errors.Is(err, common.ErrorUnauthorized):
			apiError(c, http.StatusUnauthorized, "INVALID_TOKEN", "refresh token is not recognized")
		default:
			h.internalError(c, "refresh", err)
		}
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *handler) logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_INPUT", "refreshToken is required")
		return
	}

	if err := h.users.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.internalError(c, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (h *handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_INPUT", "currentPassword and newPassword are required")
		return
	}

	err := h.users.ChangePassword(c.Request.Context(), userID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			apiError(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		case errors.Is(err, common.ErrInvalidCredentials):
			apiError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "current password is incorrect")
		case errors.Is(err, common.ErrorUnauthorized):
			apiError(c, http.StatusUnauthorized, "UNAUTHORIZED", "account no longer exists")
		default:
			h.internalError(c, "change password", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password changed"})
}

type resetRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *handler) requestPasswordReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_INPUT", "email is required")
		return
	}

	if err := h.users.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.logger.Error(c.Request.Context(), "password reset request failed", "error", err)
	}
	// always the same answer, so the endpoint cannot confirm which emails exist
	c.JSON(http.StatusOK, gin.H{"status": "if the address is registered, a reset link has been sent"})
}

type resetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func (h *handler) resetPassword(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_INPUT", "token and newPassword are required")
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			apiError(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		case errors.Is(err, common.ErrTokenExpired):
			apiError(c, http.StatusBadRequest, "TOKEN_EXPIRED", "reset link has expired")
		case errors.Is(err, common.ErrInvalidToken):
			apiError(c, http.StatusBadRequest, "INVALID_TOKEN", "reset link is invalid or already used")
		default:
			h.internalError(c, "reset password", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password reset"})
}

func (h *handler) profile(c *gin.Context) {
	user, err := h.users.GetProfile(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			apiError(c, http.StatusUnauthorized, "UNAUTHORIZED", "account no longer exists")
			return
		}
		h.internalError(c, "get profile", err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

type updateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_INPUT", "malformed request body")
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID(c), req.FirstName, req.LastName)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			apiError(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		case errors.Is(err, common.ErrorNotFound):
			apiError(c, http.StatusUnauthorized, "UNAUTHORIZED", "account no longer exists")
		default:
			h.internalError(c, "update profile", err)
		}
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *handler) internalError(c *gin.Context, op string, err error) {
	h.logger.Error(c.Request.Context(), op+" failed", "error", err)
	apiError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
}
