package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/service"
)

// Authenticator issues sessions.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (service.Session, error)
	Register(ctx context.Context, req service.RegisterRequest) (service.Session, error)
}

// AuthHandler serves /v1/auth.
type AuthHandler struct {
	svc Authenticator
	log *zap.Logger
}

func NewAuthHandler(svc Authenticator, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log.Named("auth")}
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerReq struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

// Login verifies e-mail and password and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, h.log, "login", invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.log, "login", err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, h.log, "login", err)
	}
	return c.JSON(http.StatusOK, s)
}

// Register creates a USER account and logs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, h.log, "register", invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.log, "register", err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.svc.Register(ctx, service.RegisterRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return fail(c, h.log, "register", err)
	}
	return c.JSON(http.StatusCreated, s)
}
