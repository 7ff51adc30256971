package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/rafaelcs/userhub/backend/internal/domain"
)

// LoginResult is the post-login view of the user's counters.
type LoginResult struct {
	UserID     string
	Email      string
	LoginCount int64
	Session    string
	LastLogin  string
}

// Login verifies the password against the stored bcrypt hash and, on
// success, bumps the activity counters. A bad email and a bad password
// both surface as ErrUnauthorized so the response does not reveal which
// one was wrong. Counter updates are best effort: a counter-store outage
// never turns a valid login into a failure.
func (c *Coordinator) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: email and password are required", domain.ErrInvalidArgument)
	}

	cctx, cancel := c.callContext(ctx)
	ident, err := c.credentials.FetchByEmail(cctx, email)
	cancel()
	if errors.Is(err, domain.ErrNotFound) {
		return LoginResult{}, domain.ErrUnauthorized
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("fetch credentials: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, domain.ErrUnauthorized
	}

	res := LoginResult{
		UserID:  ident.UserID,
		Email:   ident.Email,
		Session: domain.SessionActive,
	}

	cctx, cancel = c.callContext(ctx)
	defer cancel()

	count, err := c.counters.IncrementLogin(cctx, ident.UserID)
	if err != nil {
		c.logger.Warn("login counter increment failed", "userId", ident.UserID, "error", err)
	} else {
		res.LoginCount = count
	}
	if err := c.counters.SetSession(cctx, ident.UserID, domain.SessionActive); err != nil {
		c.logger.Warn("session activation failed", "userId", ident.UserID, "error", err)
	}
	now := c.nowFn().UTC().Format("2006-01-02T15:04:05Z")
	if err := c.counters.TouchLastLogin(cctx, ident.UserID, now); err != nil {
		c.logger.Warn("last-login touch failed", "userId", ident.UserID, "error", err)
	} else {
		res.LastLogin = now
	}
	return res, nil
}

// Logout flips the user's session marker to OFFLINE. Logging out a user
// who was never logged in is not an error.
func (c *Coordinator) Logout(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: userId must not be empty", domain.ErrInvalidArgument)
	}
	cctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.counters.SetSession(cctx, userID, domain.SessionOffline)
}

// RegisterLogin bumps the login counter without credential verification,
// for callers that authenticate out of band. Returns the new count.
func (c *Coordinator) RegisterLogin(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, fmt.Errorf("%w: userId must not be empty", domain.ErrInvalidArgument)
	}
	cctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.counters.IncrementLogin(cctx, userID)
}

// LoginCount reads the current login counter; absent users read as zero.
func (c *Coordinator) LoginCount(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, fmt.Errorf("%w: userId must not be empty", domain.ErrInvalidArgument)
	}
	cctx, cancel := c.callContext(ctx)
	defer cancel()
	return c.counters.LoginCount(cctx, userID)
}
