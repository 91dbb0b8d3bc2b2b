package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/config"
	"github.com/iliyamo/campus-booking/internal/model"
	"github.com/iliyamo/campus-booking/internal/utils"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	cfg := config.Auth{JWTSecret: "test-secret", AccessTTLMin: 15, BcryptCost: 4}
	svc := NewAuthService(f.deps, cfg)
	ctx := context.Background()

	s, err := svc.Register(ctx, RegisterRequest{FirstName: "Ana", LastName: "Ruiz", Email: " Ana@Campus.test ", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, s.User.Role)
	assert.Equal(t, "ana@campus.test", s.User.Email)

	claims, err := utils.ParseAccessToken(cfg.JWTSecret, s.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, claims.UserID)
	assert.Equal(t, "USER", claims.Role)

	_, err = svc.Register(ctx, RegisterRequest{FirstName: "Ana", LastName: "Ruiz", Email: "ana@campus.test", Password: "longenough"})
	assert.ErrorIs(t, err, booking.ErrAlreadyExists)

	logged, err := svc.Login(ctx, "ANA@campus.test", "longenough")
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, logged.User.ID)

	_, err = svc.Login(ctx, "ana@campus.test", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@campus.test", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.deps, config.Auth{JWTSecret: "x", BcryptCost: 4})

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "not-an-email", Password: "short"})
	var ve *booking.ValidationError
	require.ErrorAs(t, err, &ve)
	for _, field := range []string{"firstName", "lastName", "email", "password"} {
		assert.Contains(t, ve.Fields, field)
	}
}

func TestNotificationReadSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, msg := range []string{"one", "two"} {
		require.NoError(t, f.store.Insert(ctx, &model.Notification{UserID: f.requester.ID, Message: msg}))
	}
	foreign := &model.Notification{UserID: f.super.ID, Message: "not yours"}
	require.NoError(t, f.store.Insert(ctx, foreign))
	svc := NewNotificationService(f.deps)

	list, err := svc.List(ctx, f.requester.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, svc.MarkRead(ctx, f.requester.ID, list[0].ID))
	assert.ErrorIs(t, svc.MarkRead(ctx, f.requester.ID, foreign.ID), booking.ErrNotFound)

	n, err := svc.MarkAllRead(ctx, f.requester.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
