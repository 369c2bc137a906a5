package account

import (
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/validators"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Notifier delivers verification tokens to account owners.
type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
}

// SessionTokens issues and checks the bearer tokens handed out on login.
type SessionTokens interface {
	Issue(accountID string) (string, time.Time, error)
	Verify(token string) (string, error)
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *model.Account
	Message   string
}

// Service ties credentials, verification tokens, sessions and notifications
// into the user facing account flows.
type Service struct {
	creds    *CredentialStore
	tokens   *VerificationTokens
	sessions SessionTokens
	notifier Notifier
	settings
}

func NewService(creds *CredentialStore, tokens *VerificationTokens, sessions SessionTokens, notifier Notifier, opts ...Option) *Service {
	return &Service{
		creds:    creds,
		tokens:   tokens,
		sessions: sessions,
		notifier: notifier,
		settings: newSettings(opts),
	}
}

// Register creates an unverified account and sends its verification token.
// When only the delivery fails the created account is returned together with
// an ErrDeliveryFailure error; the account stays in place with its token
// pending.
func (s *Service) Register(ctx context.Context, in NewAccount) (*model.Account, error) {
	v, err := s.tokens.Generate()
	if err != nil {
		return nil, err
	}

	a, err := s.creds.Create(ctx, in, v)
	if err != nil {
		return nil, err
	}

	// The account exists now, so the delivery attempt must happen even if
	// the caller goes away.
	if err := s.deliver(context.WithoutCancel(ctx), a.Email, v.Token); err != nil {
		zap.L().Error("Failed to send verification email", zap.Error(err), zap.String("accountID", a.ID))
		return a, err
	}

	return a, nil
}

func (s *Service) deliver(ctx context.Context, email, token string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.notifier.SendVerification(ctx, email, token); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailure, err)
	}

	return nil
}

// Login checks the credentials and opens a session. Unknown emails and wrong
// passwords both fail with ErrInvalidCredentials. A blocked account with the
// correct password fails with ErrBlockedAccount.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	a, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.creds.burnPassword(password)
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if !s.creds.VerifyPassword(a, password) {
		return nil, ErrInvalidCredentials
	}

	state := StateOf(a)
	if err := state.CanLogin(); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.sessions.Issue(a.ID)
	if err != nil {
		return nil, internalErr("issue session token", err)
	}

	now := s.now()
	if err := s.creds.Update(ctx, a.ID, Changes{LastLoginAt: &now}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}
	a.LastLoginAt = &now

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   a,
		Message:   state.LoginHint(),
	}, nil
}

// VerifyEmail redeems a verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	id, err := s.tokens.ValidateAndConsume(ctx, token)
	if err != nil {
		return err
	}

	zap.L().Debug("Account verified", zap.String("accountID", id))
	return nil
}

// ResendVerification sends the pending verification token of the account
// registered with email again, minting a new one if it expired. Unknown and
// already verified emails succeed silently so the endpoint can't be used to
// probe for accounts.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = validators.NormalizeEmail(email)
	if err := validators.EmailValidator(email); err != nil {
		return invalid(err)
	}

	a, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}

		return err
	}

	if a.IsVerified {
		return nil
	}

	token, err := s.tokens.Reissue(ctx, a)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}

		return err
	}

	return s.deliver(context.WithoutCancel(ctx), a.Email, token)
}

// Authorize resolves a session token to its account. The account is read
// fresh on every call so blocking or deleting it takes effect immediately.
func (s *Service) Authorize(ctx context.Context, sessionToken string) (*model.Account, error) {
	if sessionToken == "" {
		return nil, ErrUnauthorized
	}

	id, err := s.sessions.Verify(sessionToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	a, err := s.creds.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthorized
		}

		return nil, err
	}

	if err := StateOf(a).CanAccess(); err != nil {
		return nil, err
	}

	return a, nil
}

// SessionTTL is how long tokens issued by Login stay valid.
func (s *Service) SessionTTL() time.Duration {
	if t, ok := s.sessions.(interface{ TTL() time.Duration }); ok {
		return t.TTL()
	}

	return 0
}
