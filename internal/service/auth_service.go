package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/config"
	"github.com/iliyamo/campus-booking/internal/model"
	"github.com/iliyamo/campus-booking/internal/utils"
)

// ErrInvalidCredentials is returned for an unknown e-mail, a wrong
// password or an inactive account alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// minPasswordLen is the shortest password Register accepts.
const minPasswordLen = 8

// Session is a successful login.
type Session struct {
	User   model.User        `json:"user"`
	Access utils.AccessToken `json:"access"`
}

// RegisterRequest creates a USER account.
type RegisterRequest struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// AuthService issues access tokens.
type AuthService struct {
	d        Deps
	cfg      config.Auth
	log      *zap.Logger
	validate *validator.Validate
}

func NewAuthService(d Deps, cfg config.Auth) *AuthService {
	d = d.withDefaults()
	return &AuthService{d: d, cfg: cfg, log: d.Log.Named("auth"), validate: validator.New()}
}

// Login verifies the password and returns a fresh access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, booking.Invalid("email", "email and password are required")
	}
	u, err := s.d.Store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(translate(err), booking.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(u)
}

// Register creates a USER account and logs it in.  Elevated roles are
// granted out of band.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (Session, error) {
	u := model.User{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      model.RoleUser,
		IsActive:  true,
	}
	v := &booking.ValidationError{}
	if u.FirstName == "" {
		v.Add("firstName", "first name is required")
	}
	if u.LastName == "" {
		v.Add("lastName", "last name is required")
	}
	if err := s.validate.Var(u.Email, "required,email"); err != nil {
		v.Add("email", "a valid e-mail address is required")
	}
	if len(req.Password) < minPasswordLen {
		v.Add("password", "password must have at least 8 characters")
	}
	if err := v.Err(); err != nil {
		return Session{}, err
	}
	hash, err := utils.HashPassword(req.Password, s.cfg.BcryptCost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return Session{}, booking.Invalid("password", "password must have at most 72 bytes")
	}
	if err != nil {
		return Session{}, err
	}
	u.PasswordHash = hash
	if err := s.d.Store.CreateUser(ctx, &u); err != nil {
		return Session{}, translate(err)
	}
	s.log.Info("user registered", zap.Uint64("user_id", u.ID))
	return s.issue(u)
}

func (s *AuthService) issue(u model.User) (Session, error) {
	tok, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, string(u.Role), s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Access: tok}, nil
}
