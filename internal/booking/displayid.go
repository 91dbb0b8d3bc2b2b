package booking

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/iliyamo/campus-booking/internal/model"
)

const (
	displayAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DisplayCodeLength is the length of the random part of a resource
	// display ID.
	DisplayCodeLength = 5
	// MaxDisplayIDAttempts bounds the collision retry loop.  With 36^5
	// codes the loop only runs out when the keyspace is nearly full.
	MaxDisplayIDAttempts = 64

	fallbackSurname = "USER"
)

// ResourcePrefix returns the display ID prefix of a resource kind.
func ResourcePrefix(kind model.ResourceKind) string {
	switch kind {
	case model.KindSpace:
		return "ES"
	case model.KindEquipment:
		return "EQ"
	case model.KindWorkshop:
		return "TA"
	}
	return "RS"
}

// RandomCode draws n characters from [A-Z0-9] using crypto/rand.
func RandomCode(n int) (string, error) {
	max := big.NewInt(int64(len(displayAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = displayAlphabet[k.Int64()]
	}
	return string(buf), nil
}

// ExistsFunc reports whether a display ID is already taken.
type ExistsFunc func(ctx context.Context, displayID string) (bool, error)

// NewResourceDisplayID draws PREFIX_XXXXX codes until exists reports a free
// one.  It gives up with ErrDisplayIDExhausted after MaxDisplayIDAttempts.
func NewResourceDisplayID(ctx context.Context, kind model.ResourceKind, exists ExistsFunc) (string, error) {
	prefix := ResourcePrefix(kind)
	for attempt := 0; attempt < MaxDisplayIDAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := RandomCode(DisplayCodeLength)
		if err != nil {
			return "", err
		}
		id := prefix + "_" + code
		taken, err := exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrDisplayIDExhausted
}

// Surname derives the requester segment of a reservation display ID: the
// first word of the last name with accents removed, reduced to A-Z and
// upper-cased.  An empty result falls back to USER.
func Surname(lastName string) string {
	fields := strings.Fields(lastName)
	if len(fields) == 0 {
		return fallbackSurname
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, fields[0])
	if err != nil {
		plain = fields[0]
	}
	plain = strings.ToUpper(plain)
	var b strings.Builder
	for _, r := range plain {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallbackSurname
	}
	return b.String()
}

// ReservationDisplayID formats YYMMDD_SURNAME_NNNN.  day must already be in
// the location the counter is keyed in.
func ReservationDisplayID(day time.Time, surname string, seq int) string {
	return fmt.Sprintf("%s_%s_%04d", day.Format("060102"), surname, seq)
}

// CounterKey is the ReservationCounter key (YYYY-MM-DD) for day.
func CounterKey(day time.Time) string { return day.Format(time.DateOnly) }
