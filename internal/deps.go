package internal

import (
	"bitwise74/account-api/config"
	"bitwise74/account-api/internal/account"
	"bitwise74/account-api/internal/metrics"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/security"
	"context"
	"errors"
	"fmt"
)

// Deps is everything the HTTP handlers and background jobs need.
type Deps struct {
	Config   *config.Config
	Accounts *account.Service
	Admin    *account.Admin
	Tokens   *account.VerificationTokens
	Metrics  *metrics.Metrics
}

// DepsOptions overrides parts of the wiring. Repo is required, the rest
// falls back to what the config asks for.
type DepsOptions struct {
	Repo     store.Repository
	Notifier account.Notifier
	Hasher   account.PasswordHasher
	Metrics  *metrics.Metrics
}

func NewDeps(cfg *config.Config, o DepsOptions) (*Deps, error) {
	if o.Repo == nil {
		return nil, errors.New("no account repository configured")
	}

	if o.Notifier == nil {
		o.Notifier = NewNotifier(cfg)
	}
	if o.Hasher == nil {
		o.Hasher = security.New()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}

	sessions, err := security.NewSessionIssuer([]byte(cfg.JWT.Secret), cfg.JWT.ExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("failed to create session issuer, %w", err)
	}

	opts := []account.Option{account.WithTimeout(cfg.App.OperationTimeout)}

	creds := account.NewCredentialStore(o.Repo, o.Hasher, opts...)
	tokens := account.NewVerificationTokens(o.Repo, opts...)

	return &Deps{
		Config:   cfg,
		Accounts: account.NewService(creds, tokens, sessions, o.Notifier, opts...),
		Admin:    account.NewAdmin(o.Repo, opts...),
		Tokens:   tokens,
		Metrics:  o.Metrics,
	}, nil
}

// NewNotifier picks the verification mail transport from cfg.Mail.Driver.
func NewNotifier(cfg *config.Config) account.Notifier {
	if cfg.Mail.Driver == "log" {
		return service.LogNotifier{FrontendURL: cfg.App.FrontendURL}
	}

	return service.NewMailer(service.MailConfig{
		Host:        cfg.Mail.Host,
		Port:        cfg.Mail.Port,
		Username:    cfg.Mail.Username,
		Password:    cfg.Mail.Password,
		Sender:      cfg.Mail.Sender,
		FrontendURL: cfg.App.FrontendURL,
		AppName:     cfg.App.Name,
	})
}

// SweepExpired clears expired verification tokens and counts them in the
// metrics. It lets Deps drive service.TokenCleanup.
func (d *Deps) SweepExpired(ctx context.Context) (int64, error) {
	n, err := d.Tokens.SweepExpired(ctx)
	if err != nil {
		return 0, err
	}

	d.Metrics.Swept(n)
	return n, nil
}
