package otp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jalstore/storefront/internal/identity"
	"github.com/jalstore/storefront/internal/logging"
	"github.com/jalstore/storefront/internal/sms"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type fakeSender struct {
	mu    sync.Mutex
	texts map[string][]string
	err   error
}

func newFakeSender() *fakeSender {
	return &fakeSender{texts: make(map[string][]string)}
}

func (f *fakeSender) Name() string    { return "fake" }
func (f *fakeSender) Validate() error { return f.err }

func (f *fakeSender) Send(_ context.Context, phoneKey, text string) (sms.Receipt, error) {
	if f.err != nil {
		return sms.Receipt{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts[phoneKey] = append(f.texts[phoneKey], text)
	return sms.Receipt{Provider: "fake", MessageID: fmt.Sprintf("m-%d", len(f.texts[phoneKey]))}, nil
}

func (f *fakeSender) lastCode(t *testing.T, phoneKey string) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := f.texts[phoneKey]
	require.NotEmpty(t, texts, "no sms sent to %s", phoneKey)
	code := codePattern.FindString(texts[len(texts)-1])
	require.NotEmpty(t, code)
	return code
}

type fakeTokens struct{}

func (fakeTokens) Mint(user identity.User) (string, time.Time, error) {
	return "token-" + user.ID, time.Now().Add(30 * 24 * time.Hour), nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc    *Service
	store  Store
	sender *fakeSender
	users  identity.Repository
	clock  *clock
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	f := fixture{
		store:  NewMemoryStore(),
		sender: newFakeSender(),
		users:  identity.NewMemoryRepository(),
		clock:  &clock{now: time.Now().UTC()},
	}
	opts.HashCost = bcrypt.MinCost
	opts.Now = f.clock.Now
	f.svc = NewService(f.store, f.sender, identity.NewService(f.users), fakeTokens{}, logging.Discard(), opts)
	return f
}

func wrongCode(code string) string {
	if code == "111111" {
		return "222222"
	}
	return "111111"
}

func TestRequestThenVerifyScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	res, err := f.svc.Request(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", res.Phone)
	assert.Empty(t, res.DevCode)

	rec, err := f.store.Find(ctx, "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Attempts)
	assert.WithinDuration(t, f.clock.Now().Add(CodeTTL), rec.ExpiresAt, time.Second)

	code := f.sender.lastCode(t, "+919876543210")
	assert.Len(t, code, CodeLength)
	assert.NotEqual(t, code, rec.CodeHash, "code must not be stored in clear")

	_, err = f.svc.Verify(ctx, "9876543210", wrongCode(code), "")
	require.ErrorIs(t, err, ErrInvalidCode)
	rec, err = f.store.Find(ctx, "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)

	session, err := f.svc.Verify(ctx, "9876543210", code, "Asha")
	require.NoError(t, err)
	assert.True(t, session.Created)
	assert.Equal(t, "token-"+session.User.ID, session.Token)
	assert.Equal(t, "+919876543210", session.User.Phone)
	assert.Equal(t, "Asha", session.User.Name)
	assert.Equal(t, identity.RoleUser, session.User.Role)

	_, err = f.store.Find(ctx, "+919876543210")
	require.ErrorIs(t, err, ErrNotFound)

	user, err := f.users.FindByPhone(ctx, "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, user.ID)
}

func TestVerifySucceedsOnlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, err := f.svc.Request(ctx, "+919876543210")
	require.NoError(t, err)
	code := f.sender.lastCode(t, "+919876543210")

	_, err = f.svc.Verify(ctx, "+919876543210", code, "")
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, "+919876543210", code, "")
	require.ErrorIs(t, err, ErrNotRequested)
}

func TestSecondRequestInvalidatesFirstCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, err := f.svc.Request(ctx, "9876543210")
	require.NoError(t, err)
	first := f.sender.lastCode(t, "+919876543210")

	_, err = f.svc.Request(ctx, "9876543210")
	require.NoError(t, err)
	second := f.sender.lastCode(t, "+919876543210")

	if first != second {
		_, err = f.svc.Verify(ctx, "9876543210", first, "")
		require.ErrorIs(t, err, ErrInvalidCode)
	}
	_, err = f.svc.Verify(ctx, "9876543210", second, "")
	require.NoError(t, err)
}

func TestReRequestResetsAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, err := f.svc.Request(ctx, "9876543210")
	require.NoError(t, err)
	code := f.sender.lastCode(t, "+919876543210")
	_, err = f.svc.Verify(ctx, "9876543210", wrongCode(code), "")
	require.ErrorIs(t, err, ErrInvalidCode)

	_, err = f.svc.Request(ctx, "9876543210")
	require.NoError(t, err)
	rec, err := f.store.Find(ctx, "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Attempts)
}

func TestVerifyAfterExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, err := f.svc.Request(ctx, "9876543210")
	require.NoError(t, err)
	code := f.sender.lastCode(t, "+919876543210")

	f.clock.Advance(CodeTTL + time.Second)
	_, err = f.svc.Verify(ctx, "9876543210", code, "")
	require.ErrorIs(t, err, ErrExpired)

	// Expired records are left for the reaper.
	_, err = f.store.Find(ctx, "+919876543210")
	require.NoError(t, err)
	_, err = f.users.FindByPhone(ctx, "+919876543210")
	require.ErrorIs(t, err, identity.ErrNotFound)
}

func TestVerifyWithoutRequest(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.Verify(context.Background(), "9876543210", "123456", "")
	require.ErrorIs(t, err, ErrNotRequested)
}

func TestInvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	for _, raw := range []string{"", "   ", "12345", "abc"} {
		_, err := f.svc.Request(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidInput, "request %q", raw)
	}
	_, err := f.svc.Verify(ctx, "9876543210", "  ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Verify(ctx, "", "123456", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeliveryFailureKeepsChallenge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	f.sender.err = fmt.Errorf("%w: MSG91_API_KEY", sms.ErrMissingCredentials)

	res, err := f.svc.Request(ctx, "9876543210")
	require.ErrorIs(t, err, ErrDeliveryFailed)
	require.ErrorIs(t, err, sms.ErrMissingCredentials)
	assert.Empty(t, res.DevCode)

	_, err = f.store.Find(ctx, "+919876543210")
	require.NoError(t, err)
}

func TestLockoutAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{MaxAttempts: 2})

	_, err := f.svc.Request(ctx, "9876543210")
	require.NoError(t, err)
	code := f.sender.lastCode(t, "+919876543210")

	for i := 0; i < 2; i++ {
		_, err = f.svc.Verify(ctx, "9876543210", wrongCode(code), "")
		require.ErrorIs(t, err, ErrInvalidCode)
	}
	_, err = f.svc.Verify(ctx, "9876543210", code, "")
	require.ErrorIs(t, err, ErrTooManyAttempts)

	_, err = f.svc.Request(ctx, "9876543210")
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, "9876543210", f.sender.lastCode(t, "+919876543210"), "")
	require.NoError(t, err)
}

func TestLockoutHoldsUnderConcurrentGuesses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{MaxAttempts: 2})

	_, err := f.svc.Request(ctx, "9876543210")
	require.NoError(t, err)
	code := f.sender.lastCode(t, "+919876543210")

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Verify(ctx, "9876543210", wrongCode(code), "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var evaluated int
	for err := range results {
		switch {
		case errors.Is(err, ErrInvalidCode):
			evaluated++
		case errors.Is(err, ErrTooManyAttempts):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 2, evaluated)

	_, err = f.svc.Verify(ctx, "9876543210", code, "")
	require.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestNoLockoutWhenDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{MaxAttempts: 0})

	_, err := f.svc.Request(ctx, "9876543210")
	require.NoError(t, err)
	code := f.sender.lastCode(t, "+919876543210")
	for i := 0; i < 8; i++ {
		_, err = f.svc.Verify(ctx, "9876543210", wrongCode(code), "")
		require.ErrorIs(t, err, ErrInvalidCode)
	}
	_, err = f.svc.Verify(ctx, "9876543210", code, "")
	require.NoError(t, err)
}

func TestDebugExposesCode(t *testing.T) {
	f := newFixture(t, Options{Debug: true})
	res, err := f.svc.Request(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, f.sender.lastCode(t, "+919876543210"), res.DevCode)
}

func TestMessageTemplate(t *testing.T) {
	f := newFixture(t, Options{Brand: "Acme"})
	_, err := f.svc.Request(context.Background(), "9876543210")
	require.NoError(t, err)
	code := f.sender.lastCode(t, "+919876543210")
	assert.Equal(t, []string{"Your Acme OTP is " + code + ". It expires in 5 min."}, f.sender.texts["+919876543210"])
}

func TestExistingUserIsReused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	for i := 0; i < 2; i++ {
		_, err := f.svc.Request(ctx, "9876543210")
		require.NoError(t, err)
		session, err := f.svc.Verify(ctx, "9876543210", f.sender.lastCode(t, "+919876543210"), "Ravi")
		require.NoError(t, err)
		assert.Equal(t, i == 0, session.Created)
	}
	users, err := f.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "Ravi", users[0].Name)
}

func TestConcurrentVerifyIssuesOneSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	_, err := f.svc.Request(ctx, "9876543210")
	require.NoError(t, err)
	code := f.sender.lastCode(t, "+919876543210")

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Verify(ctx, "9876543210", code, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotRequested):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)

	users, err := f.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
