package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/notify"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Store    Store
	Notifier notify.Notifier
	Log      *zap.Logger
	// Location is the wall-clock zone of display-ID dates and recurring
	// block times.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = notify.Discard{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// notify hands msgs to the notifier after a commit.  Failures are logged
// and never reach the caller.
func (d Deps) notify(ctx context.Context, msgs []notify.Message) {
	if len(msgs) == 0 {
		return
	}
	if err := d.Notifier.Notify(context.WithoutCancel(ctx), msgs...); err != nil {
		d.Log.Warn("notification dispatch failed", zap.Int("messages", len(msgs)), zap.Error(err))
	}
}
