// Package auth orchestrates the session lifecycle: it issues token pairs,
// keeps the session store in step with them, rotates refresh tokens, and
// decides login success and failure outcomes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"authd/internal/rate"
	"authd/internal/session"
	"authd/internal/token"
	"authd/internal/user"
)

// TokenPair carries a freshly issued access+refresh pair to the transport
// layer for cookie delivery.
type TokenPair struct {
	Access  string
	Refresh string
}

// Service is the session lifecycle orchestrator. All dependencies are
// injected so tests can substitute fakes.
type Service struct {
	codec    *token.Codec
	sessions *session.Store
	guard    *rate.Guard
	users    user.Store
	log      *slog.Logger
}

// NewService wires the orchestrator from its collaborators.
func NewService(codec *token.Codec, sessions *session.Store, guard *rate.Guard, users user.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		codec:    codec,
		sessions: sessions,
		guard:    guard,
		users:    users,
		log:      log,
	}
}

// Signup creates a user record and issues its first session.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*user.User, *TokenPair, error) {
	if name == "" || email == "" || password == "" {
		return nil, nil, ErrValidation
	}

	u, err := s.users.Create(ctx, name, email, password)
	if err != nil {
		if errors.Is(err, user.ErrExists) {
			return nil, nil, ErrUserExists
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.issue(ctx, claimsFor(u))
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Login verifies credentials and issues a session. Failed attempts are
// counted against the client IP; a success clears the counter.
func (s *Service) Login(ctx context.Context, email, password, ip string) (*user.User, *TokenPair, error) {
	if email == "" || password == "" {
		s.NoteLoginFailure(ctx, ip)
		return nil, nil, ErrValidation
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.NoteLoginFailure(ctx, ip)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("look up user: %w", err)
	}

	if !user.VerifyPassword(u, password) {
		s.NoteLoginFailure(ctx, ip)
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.guard.Reset(ctx, ip); err != nil {
		// Not worth failing an otherwise valid login over.
		s.log.Warn("rate counter reset failed", "ip", ip, "err", err)
	}

	pair, err := s.issue(ctx, claimsFor(u))
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// CheckLoginAllowed asks the rate guard whether a login attempt from the IP
// may proceed. Runs before any credential verification.
func (s *Service) CheckLoginAllowed(ctx context.Context, ip string) error {
	return s.guard.Check(ctx, ip)
}

// NoteLoginFailure counts a failed attempt against the IP. A malformed
// request counts too: from the guard's perspective it is indistinguishable
// from probing. Best-effort; counter failures must not mask the original
// login outcome.
func (s *Service) NoteLoginFailure(ctx context.Context, ip string) {
	if err := s.guard.RecordFailure(ctx, ip); err != nil {
		s.log.Warn("rate counter increment failed", "ip", ip, "err", err)
	}
}

// Verify checks an access token: session-store liveness first, then the
// signature. Claims come from the token itself; the store is consulted only
// as a liveness oracle.
func (s *Service) Verify(ctx context.Context, accessToken string) (*token.Claims, error) {
	if accessToken == "" {
		return nil, ErrSessionInvalid
	}

	if _, err := s.sessions.GetAccess(ctx, accessToken); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		// Unreachable store: surface as infrastructure failure, not as
		// a revoked session.
		s.log.Error("session lookup failed", "err", err)
		return nil, err
	}

	claims, err := s.codec.VerifyAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims, nil
}

// UserFromClaims resolves the authenticated identity to its user record.
func (s *Service) UserFromClaims(ctx context.Context, claims *token.Claims) (*user.User, error) {
	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	return u, nil
}

// Refresh redeems a refresh token for a new pair. The store entry is
// consumed atomically before anything else, so of two concurrent redeemers
// exactly one wins; the loser's failure is a detectable theft signal.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrRefreshInvalid
	}

	if _, err := s.sessions.ConsumeRefresh(ctx, refreshToken); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		s.log.Error("refresh entry lookup failed", "err", err)
		return nil, err
	}

	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		// The entry is already consumed; a token that fails
		// verification was never redeemable anyway.
		return nil, fmt.Errorf("%w: %v", ErrRefreshInvalid, err)
	}

	return s.issue(ctx, *claims)
}

// Logout revokes both entries. Idempotent: absent entries are fine, and the
// caller sees success unless the store itself could not be reached.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var errs []error
	if accessToken != "" {
		if err := s.sessions.DeleteAccess(ctx, accessToken); err != nil {
			errs = append(errs, err)
		}
	}
	if refreshToken != "" {
		if err := s.sessions.DeleteRefresh(ctx, refreshToken); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AccessTTL exposes the access token lifetime for cookie max-age.
func (s *Service) AccessTTL() int { return int(s.codec.AccessTTL().Seconds()) }

// RefreshTTL exposes the refresh token lifetime for cookie max-age.
func (s *Service) RefreshTTL() int { return int(s.codec.RefreshTTL().Seconds()) }

// Health reports whether the session store is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

// issue mints a pair and writes both store entries. The two writes are one
// logical unit but are not rolled back on partial failure: revoking the
// access entry on a refresh-write failure would let an attacker force
// deauthentication, so the short-lived dangling entry is accepted and
// logged instead.
func (s *Service) issue(ctx context.Context, claims token.Claims) (*TokenPair, error) {
	access, refresh, err := s.codec.Issue(claims)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	rec := session.Record{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}

	if err := s.sessions.PutAccess(ctx, access, rec, s.codec.AccessTTL()); err != nil {
		return nil, err
	}
	if err := s.sessions.PutRefresh(ctx, refresh, rec, s.codec.RefreshTTL()); err != nil {
		s.log.Error("refresh entry write failed; access session left live without a refresh entry",
			"user_id", claims.UserID, "err", err)
		return nil, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func claimsFor(u *user.User) token.Claims {
	return token.Claims{UserID: u.ID, Email: u.Email, Role: u.Role}
}
