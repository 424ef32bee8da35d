// Package service contains application services for clipboards, items,
// PIN-gated access and owner authentication.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/akulinich/clipshare/internal/crypto"
	"github.com/akulinich/clipshare/internal/errs"
	"github.com/akulinich/clipshare/internal/repository"
)

// Access is the visitor-supplied proof for reading a clipboard: a PIN, a
// previously issued grant marker, or both.
type Access struct {
	Pin    string
	Marker string
}

// AccessGrant is the result of a successful PIN verification. Marker is a
// signed token the caller may cache session-side; it is only issued when
// the clipboard does not require re-verification on every visit.
type AccessGrant struct {
	ClipboardID uuid.UUID
	Marker      string
	ExpiresAt   time.Time
}

// AccessGate verifies visitor PINs against a clipboard's hashed PIN before
// any item content is decrypted. It is consulted per request; there is no
// terminal verified state.
type AccessGate struct {
	clipboards repository.ClipboardRepository
	signKey    []byte
	grantTTL   time.Duration
	log        *zap.Logger
}

// NewAccessGate constructs the gate with the marker signing key and TTL.
func NewAccessGate(clipboards repository.ClipboardRepository, signKey []byte, grantTTL time.Duration, log *zap.Logger) *AccessGate {
	if grantTTL <= 0 {
		grantTTL = 12 * time.Hour
	}
	return &AccessGate{clipboards: clipboards, signKey: signKey, grantTTL: grantTTL, log: log}
}

// Verify checks the supplied PIN. Missing clipboards, inactive clipboards
// and wrong PINs all come back as errs.ErrAccessDenied so callers cannot
// probe for existence; the distinguishable cause is logged at debug level.
func (g *AccessGate) Verify(ctx context.Context, clipboardID uuid.UUID, pin string) (AccessGrant, error) {
	cb, err := g.clipboards.GetByID(ctx, clipboardID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			g.deny(clipboardID, "clipboard not found")
			return AccessGrant{}, errs.ErrAccessDenied
		}
		return AccessGrant{}, err
	}
	if !cb.IsActive {
		g.deny(clipboardID, "clipboard inactive")
		return AccessGrant{}, errs.ErrAccessDenied
	}

	ok, err := crypto.VerifySecret(pin, cb.PinHash)
	if err != nil {
		// Malformed stored hash is data corruption, not a wrong PIN.
		return AccessGrant{}, err
	}
	if !ok {
		g.deny(clipboardID, "pin mismatch")
		return AccessGrant{}, errs.ErrAccessDenied
	}

	grant := AccessGrant{ClipboardID: clipboardID}
	if !cb.RequirePinOnVisit {
		marker, exp, err := g.issueMarker(clipboardID)
		if err != nil {
			return AccessGrant{}, err
		}
		grant.Marker = marker
		grant.ExpiresAt = exp
	}
	return grant, nil
}

// Check authorizes a read. A valid cached marker suffices unless the
// clipboard requires PIN re-verification on every visit, in which case
// only a fresh PIN is accepted.
func (g *AccessGate) Check(ctx context.Context, clipboardID uuid.UUID, access Access) error {
	cb, err := g.clipboards.GetByID(ctx, clipboardID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			g.deny(clipboardID, "clipboard not found")
			return errs.ErrAccessDenied
		}
		return err
	}
	if !cb.IsActive {
		g.deny(clipboardID, "clipboard inactive")
		return errs.ErrAccessDenied
	}

	if access.Marker != "" && !cb.RequirePinOnVisit {
		if g.checkMarker(clipboardID, access.Marker) {
			return nil
		}
		g.deny(clipboardID, "invalid marker")
		// A stale marker falls through to the PIN, if one was supplied.
	}

	if access.Pin == "" {
		g.deny(clipboardID, "no credentials")
		return errs.ErrAccessDenied
	}
	ok, err := crypto.VerifySecret(access.Pin, cb.PinHash)
	if err != nil {
		return err
	}
	if !ok {
		g.deny(clipboardID, "pin mismatch")
		return errs.ErrAccessDenied
	}
	return nil
}

// issueMarker creates a signed HS256 token scoped to one clipboard.
func (g *AccessGate) issueMarker(clipboardID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(g.grantTTL)
	claims := jwt.RegisteredClaims{
		Subject:   clipboardID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(g.signKey)
	return signed, exp, err
}

func (g *AccessGate) checkMarker(clipboardID uuid.UUID, marker string) bool {
	tok, err := jwt.ParseWithClaims(marker, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.signKey, nil
	})
	if err != nil || !tok.Valid {
		return false
	}
	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	return ok && claims.Subject == clipboardID.String()
}

func (g *AccessGate) deny(clipboardID uuid.UUID, reason string) {
	if g.log != nil {
		g.log.Debug("access denied",
			zap.String("clipboard_id", clipboardID.String()),
			zap.String("reason", reason),
		)
	}
}
