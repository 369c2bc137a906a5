package account

import "bitwise74/account-api/internal/model"

const (
	hintVerified   = "Login successful!"
	hintUnverified = "Login successful! Please verify your email to access all features."
)

// State is the lifecycle position of an account. Verified only ever moves
// from false to true; Blocked is toggled freely by administrators and never
// affects Verified.
type State struct {
	Verified bool
	Blocked  bool
}

func StateOf(a *model.Account) State {
	return State{Verified: a.IsVerified, Blocked: a.IsBlocked}
}

// CanLogin rejects blocked accounts. Unverified accounts may log in.
func (s State) CanLogin() error {
	if s.Blocked {
		return ErrBlockedAccount
	}

	return nil
}

// CanAccess gates operations behind a session.
func (s State) CanAccess() error {
	if s.Blocked {
		return ErrUnauthorized
	}

	return nil
}

// LoginHint is the message shown after a successful login.
func (s State) LoginHint() string {
	if !s.Verified {
		return hintUnverified
	}

	return hintVerified
}

func (s State) String() string {
	switch {
	case s.Blocked && s.Verified:
		return "verified-blocked"
	case s.Blocked:
		return "unverified-blocked"
	case s.Verified:
		return "verified-active"
	default:
		return "unverified-active"
	}
}
