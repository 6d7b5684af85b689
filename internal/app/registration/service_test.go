package registration

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	memclock "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/clock"
	memsecurestore "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/securestore"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/crypto/sealer"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/passwordhash"
	passwordhashport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/passwordhash"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/registrar"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/securestore"
)

type fakeRegistrar struct {
	mu    sync.Mutex
	calls []registrarCall

	resp registrar.Response
	err  error

	// block, when set, is waited on before answering.
	block chan struct{}
	// onCall, when set, runs once the request has been received.
	onCall func()
}

type registrarCall struct {
	token   string
	payload registrar.Payload
}

func (f *fakeRegistrar) Register(ctx context.Context, bearerToken string, p registrar.Payload) (registrar.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, registrarCall{token: bearerToken, payload: p})
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall()
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return registrar.Response{}, ctx.Err()
		}
	}
	return f.resp, f.err
}

func (f *fakeRegistrar) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	svc   *Service
	store *memsecurestore.Store
	reg   *fakeRegistrar
	clk   *memclock.ManualClock
}

func newFixture(t *testing.T, reg *fakeRegistrar) fixture {
	t.Helper()
	return newFixtureWithHasher(t, reg, passwordhash.SHA256{})
}

func newFixtureWithHasher(t *testing.T, reg *fakeRegistrar, hasher passwordhashport.Hasher) fixture {
	t.Helper()
	sl, err := sealer.NewRandom()
	require.NoError(t, err)
	store := memsecurestore.NewStore(sl)
	clk := memclock.NewManualClock(time.Unix(1_700_000_000, 0).UTC())
	svc := NewService(store, reg, hasher, clk, zaptest.NewLogger(t))
	return fixture{svc: svc, store: store, reg: reg, clk: clk}
}

func (f fixture) startSession(t *testing.T, sub domain.SubjectID) {
	t.Helper()
	tok := "bearer-123"
	require.NoError(t, f.svc.StartSession(context.Background(), sub, SessionInput{SecretToken: &tok}))
}

func validDraft() domain.RegistrationDraft {
	return domain.RegistrationDraft{
		Name:            "Asha Rao",
		Email:           "asha@example.com",
		Phone:           "9876543210",
		Password:        "Abc12345!",
		ConfirmPassword: "Abc12345!",
		Gender:          "female",
		State:           "Karnataka",
		City:            "Mysuru",
		JobRole:         "Approver",
	}
}

func strPtr(s string) *string { return &s }

func requireAppError(t *testing.T, err error, status int, code string) {
	t.Helper()
	ae := (*Error)(nil)
	require.True(t, errors.As(err, &ae), "err=%v (type=%T)", err, err)
	require.Equal(t, status, ae.Status)
	require.Equal(t, code, ae.Code)
}

func TestDraft_PrefillsFromSessionThenFallback(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &fakeRegistrar{})
	ctx := context.Background()

	d, err := f.svc.Draft(ctx, "sub-1", Prefill{Name: "Claim Name", Email: "claim@example.com"})
	require.NoError(t, err)
	require.Equal(t, domain.RegistrationDraft{Name: "Claim Name", Email: "claim@example.com"}, d)

	require.NoError(t, f.svc.StartSession(ctx, "sub-1", SessionInput{
		UserName:  strPtr("Stored Name"),
		UserEmail: strPtr("stored@example.com"),
	}))
	d, err = f.svc.Draft(ctx, "sub-1", Prefill{Name: "Claim Name", Email: "claim@example.com"})
	require.NoError(t, err)
	require.Equal(t, "Stored Name", d.Name)
	require.Equal(t, "stored@example.com", d.Email)
	require.Empty(t, d.Password)
}

func TestStartSession_RejectsEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &fakeRegistrar{})

	err := f.svc.StartSession(context.Background(), "sub-1", SessionInput{})
	requireAppError(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	err = f.svc.StartSession(context.Background(), "sub-1", SessionInput{SecretToken: strPtr("")})
	requireAppError(t, err, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestSubmit_NotEnabledMakesNoCall(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistrar{}
	f := newFixture(t, reg)
	f.startSession(t, "sub-1")

	d := validDraft()
	d.Phone = "12345"
	_, err := f.svc.Submit(context.Background(), "sub-1", d)
	requireAppError(t, err, http.StatusUnprocessableEntity, "SUBMIT_NOT_ENABLED")
	require.Equal(t, 0, reg.callCount())
}

func TestSubmit_WithoutSessionToken(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistrar{}
	f := newFixture(t, reg)

	_, err := f.svc.Submit(context.Background(), "sub-1", validDraft())
	requireAppError(t, err, http.StatusConflict, "SESSION_NOT_STARTED")
	require.Equal(t, 0, reg.callCount())
}

func TestSubmit_Success(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistrar{resp: registrar.Response{
		StatusCode:  http.StatusOK,
		SecretToken: strPtr("T"),
		Message:     strPtr("Check your inbox"),
	}}
	f := newFixture(t, reg)
	f.startSession(t, "sub-1")
	ctx := context.Background()

	res, err := f.svc.Submit(ctx, "sub-1", validDraft())
	require.NoError(t, err)
	require.True(t, res.Registered)
	require.Equal(t, domain.Toast(domain.SeveritySuccess, "Email Verification", "Check your inbox"), res.Notification)
	require.NotNil(t, res.Redirect)
	require.Equal(t, "/", res.Redirect.Path)
	require.Equal(t, 1500*time.Millisecond, res.Redirect.Delay)
	require.Equal(t, f.clk.Now().Add(1500*time.Millisecond), res.Redirect.At)

	require.Equal(t, 1, reg.callCount())
	call := reg.calls[0]
	require.Equal(t, "bearer-123", call.token)
	want, _ := passwordhash.SHA256{}.Hash("Abc12345!")
	require.Equal(t, registrar.Payload{
		EmpName:     "Asha Rao",
		EmpEmail:    "asha@example.com",
		Mobile:      "9876543210",
		EmpGender:   "F",
		EmpPassword: want,
		State:       "Karnataka",
		City:        "Mysuru",
		EmpStatus:   "2",
	}, call.payload)

	tok, err := f.store.Get(ctx, "sub-1", securestore.KeyTempRegisterToken)
	require.NoError(t, err)
	require.Equal(t, "T", tok)
	email, err := f.store.Get(ctx, "sub-1", securestore.KeyRegisterEmail)
	require.NoError(t, err)
	require.Equal(t, "asha@example.com", email)

	_, err = f.store.Get(ctx, "sub-1", securestore.KeySecretToken)
	require.ErrorIs(t, err, securestore.ErrNotFound, "session token is consumed by a successful registration")
	_, err = f.svc.Submit(ctx, "sub-1", validDraft())
	requireAppError(t, err, http.StatusConflict, "SESSION_NOT_STARTED")
	require.Equal(t, 1, reg.callCount())
}

func TestSubmit_FailureOutcomesWriteNothing(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		reg  *fakeRegistrar
		want domain.Notification
	}{
		{
			name: "server error",
			reg:  &fakeRegistrar{resp: registrar.Response{StatusCode: 500, Message: strPtr("ignored")}},
			want: domain.Toast(domain.SeverityError, "Oops!", "Something went wrong! Please try again later!"),
		},
		{
			name: "rejected with message",
			reg:  &fakeRegistrar{resp: registrar.Response{StatusCode: 409, Message: strPtr("Email already registered")}},
			want: domain.Toast(domain.SeverityError, "Registration Failed", "Email already registered"),
		},
		{
			name: "rejected without message",
			reg:  &fakeRegistrar{resp: registrar.Response{StatusCode: 400}},
			want: domain.Toast(domain.SeverityError, "Oops!", "Something went wrong! Please try again later!"),
		},
		{
			name: "transport failure",
			reg:  &fakeRegistrar{err: errors.New("connection refused")},
			want: domain.Toast(domain.SeverityError, "Error", "Please try again!"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, tc.reg)
			f.startSession(t, "sub-1")

			res, err := f.svc.Submit(context.Background(), "sub-1", validDraft())
			require.NoError(t, err)
			require.False(t, res.Registered)
			require.Nil(t, res.Redirect)
			require.Equal(t, tc.want, res.Notification)
			require.Equal(t, 1, tc.reg.callCount())

			_, err = f.store.Get(context.Background(), "sub-1", securestore.KeyTempRegisterToken)
			require.ErrorIs(t, err, securestore.ErrNotFound)
			_, err = f.store.Get(context.Background(), "sub-1", securestore.KeyRegisterEmail)
			require.ErrorIs(t, err, securestore.ErrNotFound)
		})
	}
}

func TestSubmit_ConcurrentSubmitRejected(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistrar{
		resp:  registrar.Response{StatusCode: http.StatusOK, SecretToken: strPtr("T")},
		block: make(chan struct{}),
	}
	f := newFixture(t, reg)
	f.startSession(t, "sub-1")

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Submit(context.Background(), "sub-1", validDraft())
		done <- err
	}()
	require.Eventually(t, func() bool { return reg.callCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err := f.svc.Submit(context.Background(), "sub-1", validDraft())
	requireAppError(t, err, http.StatusConflict, "SUBMISSION_IN_PROGRESS")

	close(reg.block)
	require.NoError(t, <-done)
	require.Equal(t, 1, reg.callCount())
}

func TestSubmit_CanceledWritesNothing(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistrar{
		resp:  registrar.Response{StatusCode: http.StatusOK, SecretToken: strPtr("T")},
		block: make(chan struct{}),
	}
	f := newFixture(t, reg)
	f.startSession(t, "sub-1")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for reg.callCount() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	_, err := f.svc.Submit(ctx, "sub-1", validDraft())
	require.ErrorIs(t, err, context.Canceled)

	_, err = f.store.Get(context.Background(), "sub-1", securestore.KeyTempRegisterToken)
	require.ErrorIs(t, err, securestore.ErrNotFound)
}

func TestSubmit_CanceledBeforeRequestMakesNoCall(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistrar{resp: registrar.Response{StatusCode: http.StatusOK, SecretToken: strPtr("T")}}
	f := newFixture(t, reg)
	f.startSession(t, "sub-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Submit(ctx, "sub-1", validDraft())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, reg.callCount())
}

func TestSubmit_AcceptedReplyIsRecordedAfterCallerLeaves(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	reg := &fakeRegistrar{
		resp:   registrar.Response{StatusCode: http.StatusOK, SecretToken: strPtr("T"), Message: strPtr("ok")},
		onCall: cancel,
	}
	f := newFixture(t, reg)
	f.startSession(t, "sub-1")

	res, err := f.svc.Submit(ctx, "sub-1", validDraft())
	require.NoError(t, err)
	require.True(t, res.Registered)

	tok, err := f.store.Get(context.Background(), "sub-1", securestore.KeyTempRegisterToken)
	require.NoError(t, err)
	require.Equal(t, "T", tok)
	email, err := f.store.Get(context.Background(), "sub-1", securestore.KeyRegisterEmail)
	require.NoError(t, err)
	require.Equal(t, "asha@example.com", email)
}

func TestSubmit_PasswordBeyondHasherLimit(t *testing.T) {
	t.Parallel()
	reg := &fakeRegistrar{resp: registrar.Response{StatusCode: http.StatusOK}}
	f := newFixtureWithHasher(t, reg, passwordhash.Bcrypt{Cost: 4})
	f.startSession(t, "sub-1")

	d := validDraft()
	d.Password = "Abc1!" + strings.Repeat("x", 68)
	d.ConfirmPassword = d.Password

	v := f.svc.Validate(d)
	require.False(t, v.CanSubmit())
	require.Equal(t, domain.ViolationTooLong, v.Password.Violation)
	require.Equal(t, "Password is too long", v.InlineErrors()["password"])

	_, err := f.svc.Submit(context.Background(), "sub-1", d)
	requireAppError(t, err, http.StatusUnprocessableEntity, "SUBMIT_NOT_ENABLED")
	ae := (*Error)(nil)
	require.True(t, errors.As(err, &ae))
	require.Equal(t, string(domain.ViolationTooLong), ae.Details["password"])
	require.Equal(t, 0, reg.callCount())

	// 72 bytes is still accepted.
	d.Password = "Abc1!" + strings.Repeat("x", 67)
	d.ConfirmPassword = d.Password
	res, err := f.svc.Submit(context.Background(), "sub-1", d)
	require.NoError(t, err)
	require.True(t, res.Registered)
}
