package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/httpapi"
	memclock "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/clock"
	memcontactrepo "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/contactrepo"
	memidempotency "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/profilerepo"
	memsecurestore "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/securestore"
	pgcontactrepo "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres/contactrepo"
	pgidempotency "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres/idempotency"
	pgprofilerepo "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres/profilerepo"
	pgsecurestore "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres/securestore"
	postgres_testutil "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres/testutil"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/registrar"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/contact"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/profile"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/registration"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/crypto/sealer"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/passwordhash"
	contactrepoport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/contactrepo"
	idempotencyport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/idempotency"
	profilerepoport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/profilerepo"
	securestoreport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/securestore"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	clk     *memclock.ManualClock

	// remoteCalls counts requests that reached the stand-in registration service.
	remoteCalls *atomic.Int32
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	const issuer = "itest-issuer"
	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	sl, err := sealer.NewRandom()
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}

	var (
		secure      securestoreport.Store
		profileRepo profilerepoport.Repository
		contactRepo contactrepoport.Repository
		idemStore   idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		secure = pgsecurestore.NewStore(pool, issuer, sl)
		profileRepo = pgprofilerepo.NewRepo(pool, issuer)
		contactRepo = pgcontactrepo.NewRepo(pool, issuer)
		idemStore = pgidempotency.NewStore(pool, issuer)
	case backendMemory:
		secure = memsecurestore.NewStore(sl)
		profileRepo = memprofilerepo.NewRepo()
		contactRepo = memcontactrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	calls := &atomic.Int32{}
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"SECRET_TOKEN":"itest-token","Message":"Check your inbox"}`))
	}))
	t.Cleanup(remote.Close)

	regSvc := registration.NewService(secure, registrar.New(remote.URL, 2*time.Second), passwordhash.SHA256{}, clk, log)
	contactSvc := contact.NewService(contactRepo, clk, log)
	profileSvc := profile.NewService(profileRepo, clk, log)
	api := httpapi.NewServer(regSvc, contactSvc, profileSvc, idemStore, clk, log)

	// Empty default subject: requests must carry X-Debug-Subject, which keeps auth-failure coverage.
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: httpapi.NewDevAuthMiddleware(""),
		Logger:         log,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL:     srv.URL,
		client:      srv.Client(),
		clk:         clk,
		remoteCalls: calls,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any, hdr map[string]string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestId string `json:"requestId"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
