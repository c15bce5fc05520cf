package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"quickride/internal/models"
	"quickride/internal/pkg/auth"
	"quickride/internal/pkg/mailer"
	"quickride/internal/repository"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	users     *repository.UserRepository
	jwtSecret string
	jwtExpiry time.Duration
	mail      mailer.Service // nil disables welcome email
	mailFrom  string
	mailName  string
	logger    *zap.Logger
}

func NewAuthHandler(users *repository.UserRepository, jwtSecret string, jwtExpiry time.Duration, mail mailer.Service, mailFrom, mailName string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		mail:      mail,
		mailFrom:  mailFrom,
		mailName:  mailName,
		logger:    logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates a new customer account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || !strings.Contains(req.Email, "@") {
		return errorResponse(c, http.StatusBadRequest, "name and a valid email are required")
	}
	if len(req.Password) < 8 {
		return errorResponse(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to create account")
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
	}
	if err := h.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errorResponse(c, http.StatusConflict, "email already registered")
		}
		h.logger.Error("create user", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to create account")
	}

	token, err := auth.CreateToken(user.ID, user.Role, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		h.logger.Error("create token", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to create account")
	}

	// Welcome email is best-effort; the account exists either way.
	if h.mail != nil {
		go func(to, name string) {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := h.mail.Send(ctx, mailer.WelcomeEmail(h.mailFrom, h.mailName, to, name)); err != nil {
				h.logger.Warn("send welcome email", zap.String("email", to), zap.Error(err))
			}
		}(user.Email, user.Name)
	}

	return successResponse(c, "account created", authResponse{Token: token, User: *user})
}

// Login authenticates a user and returns a JWT.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	user, err := h.users.FindByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusUnauthorized, "invalid credentials")
		}
		h.logger.Error("find user", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "login failed")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return errorResponse(c, http.StatusUnauthorized, "invalid credentials")
	}

	token, err := auth.CreateToken(user.ID, user.Role, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		h.logger.Error("create token", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "login failed")
	}

	return successResponse(c, "login successful", authResponse{Token: token, User: *user})
}
