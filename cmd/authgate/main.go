// Command authgate serves the authgate HTTP API.
//
// JWT_SECRET and JWT_REFRESH_SECRET are required; see authgate.ConfigFromEnv
// for the engine variables. Server variables:
//
//	PORT              listen port (default 8080)
//	DB_PATH           sqlite database file; in-memory store when empty
//	REDIS_ADDR        back the login and API limiters with Redis
//	GOOGLE_CLIENT_ID  enable POST /api/auth/google
//	TRUST_PROXY       take the client IP from X-Forwarded-For
//	SECURE_COOKIES    mark token cookies Secure
//	CLIENT_URL        comma-separated CORS origins (default http://localhost:5173)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/httpapi"
	promexport "github.com/MrEthical07/authgate/metrics/export/prometheus"
	"github.com/MrEthical07/authgate/middleware"
	"github.com/MrEthical07/authgate/provider/google"
	"github.com/MrEthical07/authgate/ratelimit"
	"github.com/MrEthical07/authgate/store/memory"
	"github.com/MrEthical07/authgate/store/sqlite"
	"github.com/go-logr/stdr"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		port       = flag.String("port", envOr("PORT", "8080"), "listen port")
		dbPath     = flag.String("db", os.Getenv("DB_PATH"), "sqlite database path; in-memory store if empty")
		redisAddr  = flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "redis address for rate limiting; in-process if empty")
		clientID   = flag.String("google-client-id", os.Getenv("GOOGLE_CLIENT_ID"), "Google OAuth client ID")
		clientURL  = flag.String("client-url", envOr("CLIENT_URL", middleware.DefaultClientOrigin), "comma-separated browser origins allowed by CORS")
		trustProxy = flag.Bool("trust-proxy", envBool("TRUST_PROXY"), "use X-Forwarded-For for the client IP")
		secure     = flag.Bool("secure-cookies", envBool("SECURE_COOKIES"), "mark token cookies Secure")
		verbosity  = flag.Int("v", 0, "log verbosity")
	)
	flag.Parse()

	stdr.SetVerbosity(*verbosity)
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("authgate")

	cfg, err := authgate.ConfigFromEnv(os.LookupEnv)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	var users authgate.UserStore
	if *dbPath != "" {
		db, err := sqlite.Open(ctx, *dbPath)
		if err != nil {
			return fmt.Errorf("open sqlite %s: %w", *dbPath, err)
		}
		defer db.Close()
		users = db
		logger.Info("using sqlite store", "path", *dbPath)
	} else {
		users = memory.New()
		logger.Info("using in-memory store")
	}

	builder := authgate.New().
		WithConfig(cfg).
		WithUserStore(users).
		WithLogger(logger)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(authgate.LogSink{Logger: logger.WithName("audit")})
	}

	var apiLimiter ratelimit.Limiter
	if *redisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{*redisAddr}})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis %s: %w", *redisAddr, err)
		}
		loginLimiter, err := ratelimit.NewRedis(client, "authgate:login", ratelimit.Config{
			Window: cfg.LoginThrottle.Window,
			Max:    cfg.LoginThrottle.Max,
		})
		if err != nil {
			return fmt.Errorf("login limiter: %w", err)
		}
		if cfg.LoginThrottle.Enabled {
			builder = builder.WithLoginLimiter(loginLimiter)
		}
		apiLimiter, err = ratelimit.NewRedis(client, "authgate:api", ratelimit.Config{
			Window: cfg.RateLimit.Window,
			Max:    cfg.RateLimit.Max,
		})
		if err != nil {
			return fmt.Errorf("api limiter: %w", err)
		}
		logger.Info("using redis rate limiting", "addr", *redisAddr)
	}

	if *clientID != "" {
		p, err := google.New(ctx, *clientID)
		if err != nil {
			return fmt.Errorf("google provider: %w", err)
		}
		builder = builder.WithProvider(p)
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	router, err := httpapi.NewRouter(httpapi.Config{
		Engine:         engine,
		Users:          users,
		Limiter:        apiLimiter,
		Logger:         logger.WithName("http"),
		TrustProxy:     *trustProxy,
		SecureCookies:  *secure,
		EnableProvider: *clientID != "",
	})
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}
	router.Handle("/metrics", promexport.NewExporter(engine).Handler()).Methods(http.MethodGet)

	origins := strings.Split(*clientURL, ",")
	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           middleware.CORS(origins...)(router),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "origins", origins)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}
