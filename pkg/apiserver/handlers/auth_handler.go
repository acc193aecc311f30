package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foshrdd/grievance/pkg/auth"
	"github.com/foshrdd/grievance/pkg/store/postgres"
)

type AuthHandler struct {
	db     *postgres.Store
	tokens *auth.TokenManager
	logger *zap.Logger
}

func NewAuthHandler(db *postgres.Store, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	AccessID uint   `json:"access_id"`
}

// Login exchanges credentials for a bearer token. A wrong password and an
// unknown email return the same response.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	repo := postgres.NewDirectoryRepository(h.db.DB())
	login, err := repo.GetLoginByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("failed to load login", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	if !auth.VerifyPassword(req.Password, login.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	principal := auth.Principal{
		Email:    login.Email,
		Role:     login.Role,
		AccessID: login.AccessID,
	}
	if login.OfficeID != nil {
		principal.CompanyID = login.OfficeID
	}

	token, err := h.tokens.Generate(principal)
	if err != nil {
		h.logger.Error("failed to sign token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{Token: token, Role: login.Role, AccessID: login.AccessID})
}
