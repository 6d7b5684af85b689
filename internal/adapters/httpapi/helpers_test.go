package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	memclock "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/clock"
	memcontactrepo "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/contactrepo"
	memidempotency "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/profilerepo"
	memsecurestore "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/securestore"
	registraradapter "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/registrar"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/contact"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/profile"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/registration"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/crypto/sealer"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/passwordhash"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/idempotency"
)

// remote is a stand-in registration service answering with a fixed status and body.
type remote struct {
	srv    *httptest.Server
	calls  atomic.Int32
	status atomic.Int32
	body   atomic.Value // string
}

func newRemote(t *testing.T, status int, body string) *remote {
	t.Helper()
	rm := &remote{}
	rm.status.Store(int32(status))
	rm.body.Store(body)
	rm.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rm.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(rm.status.Load()))
		_, _ = w.Write([]byte(rm.body.Load().(string)))
	}))
	t.Cleanup(rm.srv.Close)
	return rm
}

type testAPI struct {
	handler http.Handler
	clk     *memclock.ManualClock
	remote  *remote
}

func newTestAPI(t *testing.T, rm *remote) *testAPI {
	t.Helper()
	return newTestAPIWithAuth(t, rm, NewDevAuthMiddleware(""))
}

func newTestAPIWithAuth(t *testing.T, rm *remote, authMW func(http.Handler) http.Handler) *testAPI {
	t.Helper()
	return newTestAPIWith(t, testAPIOptions{remote: rm, auth: authMW})
}

type testAPIOptions struct {
	remote *remote
	auth   func(http.Handler) http.Handler
	idem   idempotency.Store
	log    *zap.Logger
}

func newTestAPIWith(t *testing.T, o testAPIOptions) *testAPI {
	t.Helper()
	rm := o.remote
	if rm == nil {
		rm = newRemote(t, http.StatusOK, `{"SECRET_TOKEN":"reg-tok","Message":"Verify your email"}`)
	}
	if o.auth == nil {
		o.auth = NewDevAuthMiddleware("")
	}
	if o.idem == nil {
		o.idem = memidempotency.NewStore()
	}
	log := o.log
	if log == nil {
		log = zaptest.NewLogger(t)
	}
	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	sl, err := sealer.NewRandom()
	require.NoError(t, err)

	regSvc := registration.NewService(
		memsecurestore.NewStore(sl),
		registraradapter.New(rm.srv.URL, 2*time.Second),
		passwordhash.SHA256{},
		clk,
		log,
	)
	contactSvc := contact.NewService(memcontactrepo.NewRepo(), clk, log)
	profileSvc := profile.NewService(memprofilerepo.NewRepo(), clk, log)

	api := NewServer(regSvc, contactSvc, profileSvc, o.idem, clk, log)
	h := NewRouter(api, RouterOptions{
		AuthMiddleware: o.auth,
		Logger:         log,
	})
	return &testAPI{handler: h, clk: clk, remote: rm}
}

func (a *testAPI) do(t *testing.T, method, path, subject string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(body)
			require.NoError(t, err)
			buf = bytes.NewBuffer(raw)
		}
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body=%s", rec.Body.String())
	return out
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	require.Equal(t, status, rec.Code, "body=%s", rec.Body.String())
	er := decode[ErrorResponse](t, rec)
	require.Equal(t, code, er.Error.Code)
	return er
}
