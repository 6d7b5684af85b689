package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/httpapi"
	memcontactrepo "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/contactrepo"
	memidempotency "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/profilerepo"
	memsecurestore "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/memory/securestore"
	postgres "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres"
	pgcontactrepo "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres/contactrepo"
	pgidempotency "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres/idempotency"
	pgprofilerepo "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres/profilerepo"
	pgsecurestore "github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/postgres/securestore"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/adapters/registrar"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/contact"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/profile"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/app/registration"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/Overland-East-Bay/trip-estimator-api/internal/platform/clock"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/config"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/crypto/sealer"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/logging"
	"github.com/Overland-East-Bay/trip-estimator-api/internal/platform/passwordhash"
	contactrepoport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/contactrepo"
	idempotencyport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/idempotency"
	passwordhashport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/passwordhash"
	profilerepoport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/profilerepo"
	securestoreport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/securestore"
)

const devIssuer = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	// Auth configuration:
	// - Production: require JWT_* env vars and enforce bearer auth
	// - Local dev: set AUTH_MODE=dev to bypass JWT verification and use X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	authIssuer := ""
	switch cfg.AuthMode {
	case config.AuthModeDev:
		log.Warn("dev auth enabled; requests are trusted by X-Debug-Subject")
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
		authIssuer = devIssuer
	default:
		jwtCfg, err := config.LoadJWTConfigFromEnv()
		if err != nil {
			return fmt.Errorf("auth config: %w", err)
		}
		authMW = httpapi.NewAuthMiddleware(jwtverifier.New(jwtCfg))
		authIssuer = jwtCfg.Issuer
	}

	key, err := cfg.SecureStoreKeyBytes()
	if err != nil {
		return err
	}
	var sl *sealer.Sealer
	if key != nil {
		sl, err = sealer.New(key)
	} else {
		log.Warn("SECURESTORE_KEY unset; secure store values will not survive a restart")
		sl, err = sealer.NewRandom()
	}
	if err != nil {
		return fmt.Errorf("secure store sealer: %w", err)
	}

	var (
		secure      securestoreport.Store
		profileRepo profilerepoport.Repository
		contactRepo contactrepoport.Repository
		idemStore   idempotencyport.Store
	)
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}

		secure = pgsecurestore.NewStore(pool, authIssuer, sl)
		profileRepo = pgprofilerepo.NewRepo(pool, authIssuer)
		contactRepo = pgcontactrepo.NewRepo(pool, authIssuer)
		idemStore = pgidempotency.NewStore(pool, authIssuer)
	default:
		secure = memsecurestore.NewStore(sl)
		profileRepo = memprofilerepo.NewRepo()
		contactRepo = memcontactrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}
	log.Info("storage ready", zap.String("backend", cfg.StorageBackend))

	var hasher passwordhashport.Hasher = passwordhash.SHA256{}
	if cfg.PasswordHash == config.PasswordHashBcrypt {
		hasher = passwordhash.Bcrypt{Cost: cfg.BcryptCost}
	}

	clk := platformclock.NewSystemClock()

	regSvc := registration.NewService(secure, registrar.New(cfg.RegisterURL, cfg.RegisterTimeout), hasher, clk, log.Named("registration"))
	regSvc.RedirectDelay = cfg.RegisterRedirectDelay
	regSvc.RedirectPath = cfg.RegisterRedirectPath

	contactSvc := contact.NewService(contactRepo, clk, log.Named("contact"))
	contactSvc.ConfirmationTTL = cfg.ContactConfirmationTTL

	profileSvc := profile.NewService(profileRepo, clk, log.Named("profile"))
	profileSvc.SessionTTL = cfg.ProfileSessionTTL

	api := httpapi.NewServer(regSvc, contactSvc, profileSvc, idemStore, clk, log.Named("http"))
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		Logger:         log.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", zap.String("addr", srv.Addr), zap.String("auth_mode", cfg.AuthMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
