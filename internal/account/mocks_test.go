package account_test

import (
	"bitwise74/account-api/internal/account"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/security"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerification(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

// expectSend accepts any number of deliveries to email and records the
// tokens sent.
func (m *MockNotifier) expectSend(email string, err error) *[]string {
	var (
		mu   sync.Mutex
		sent []string
	)

	m.On("SendVerification", mock.Anything, email, mock.AnythingOfType("string")).
		Return(err).
		Run(func(args mock.Arguments) {
			mu.Lock()
			defer mu.Unlock()
			sent = append(sent, args.String(2))
		})

	return &sent
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// slowRepo never answers lookups before the deadline.
type slowRepo struct {
	*store.MemoryRepository
}

func (s slowRepo) FindByEmail(ctx context.Context, _ string) (*model.Account, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// cancelingRepo cancels the caller's context right as the insert starts,
// like a client hanging up mid-request.
type cancelingRepo struct {
	*store.MemoryRepository
	cancel context.CancelFunc
}

func (r cancelingRepo) Create(ctx context.Context, a *model.Account) error {
	r.cancel()
	return r.MemoryRepository.Create(ctx, a)
}

type harness struct {
	repo     store.Repository
	clock    *testClock
	notifier *MockNotifier
	creds    *account.CredentialStore
	tokens   *account.VerificationTokens
	svc      *account.Service
	admin    *account.Admin
	sent     map[string]*[]string
}

func newHarness(t *testing.T, repo store.Repository, opts ...account.Option) *harness {
	t.Helper()

	if repo == nil {
		repo = store.NewMemoryRepository()
	}

	h := &harness{
		repo:     repo,
		clock:    &testClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
		notifier: &MockNotifier{},
		sent:     map[string]*[]string{},
	}

	opts = append([]account.Option{account.WithClock(h.clock.Now)}, opts...)

	sessions, err := security.NewSessionIssuer([]byte("test-secret"), time.Hour, security.WithSessionClock(h.clock.Now))
	require.NoError(t, err)

	hasher := &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	h.creds = account.NewCredentialStore(repo, hasher, opts...)
	h.tokens = account.NewVerificationTokens(repo, opts...)
	h.svc = account.NewService(h.creds, h.tokens, sessions, h.notifier, opts...)
	h.admin = account.NewAdmin(repo, opts...)

	return h
}

func (h *harness) register(t *testing.T, username, email, password string) (*model.Account, string) {
	t.Helper()

	sent := h.sentTo(email)

	a, err := h.svc.Register(context.Background(), account.NewAccount{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	require.NotEmpty(t, *sent)

	return a, (*sent)[len(*sent)-1]
}

// sentTo returns the tokens delivered to email so far.
func (h *harness) sentTo(email string) *[]string {
	if s, ok := h.sent[email]; ok {
		return s
	}

	s := h.notifier.expectSend(email, nil)
	h.sent[email] = s
	return s
}
