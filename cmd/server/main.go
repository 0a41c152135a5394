package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-tenant-notes/internal/config"
	"github.com/jrsteele09/go-tenant-notes/internal/metrics"
	"github.com/jrsteele09/go-tenant-notes/notes"
	"github.com/jrsteele09/go-tenant-notes/server"
	"github.com/jrsteele09/go-tenant-notes/service"
	"github.com/jrsteele09/go-tenant-notes/sessions"
	"github.com/jrsteele09/go-tenant-notes/store/postgres"
	"github.com/jrsteele09/go-tenant-notes/tenants"
	"github.com/jrsteele09/go-tenant-notes/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	sessionPurgeInterval = 10 * time.Minute
	maxRestarts          = 5
	restartDelay         = 1 * time.Second
)

// errStartup marks failures before the listener is up. Retrying cannot fix
// them, so they end the process.
var errStartup = errors.New("startup failed")

func main() {
	if err := runWithRestarts(run, maxRestarts, restartDelay); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

// runWithRestarts calls run until it returns nil. A startup failure is
// returned at once; other failures are retried up to maxRestarts times.
func runWithRestarts(run func() error, maxRestarts int, delay time.Duration) error {
	for restarts := 0; ; restarts++ {
		err := run()
		if err == nil {
			return nil
		}
		if errors.Is(err, errStartup) || restarts >= maxRestarts {
			return err
		}
		log.Error().Err(err).Int("restart", restarts+1).Msg("Error running server, restarting")
		time.Sleep(delay)
	}
}

func startupErr(err error) error {
	return fmt.Errorf("%w: %w", errStartup, err)
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return startupErr(err)
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, sessionRepo, closeStore, err := openStore(ctx, c)
	if err != nil {
		return startupErr(err)
	}
	defer closeStore()

	if c.GetSeedDemoData() {
		if err := server.SeedDemoData(ctx, repos); err != nil {
			return startupErr(fmt.Errorf("seeding demo data: %w", err))
		}
	}

	if c.GetSessionSecretGenerated() {
		log.Warn().Msg("SESSION_SECRET not set; using a random key, sessions will not survive a restart")
	}
	manager, err := sessions.NewManager(repos.Users, sessionRepo, c.GetSessionSecret(), sessions.WithMaxAge(c.GetMaxSessionAge()))
	if err != nil {
		return startupErr(err)
	}
	go purgeSessions(ctx, manager)

	m := metrics.NewNotesMetrics()
	notesService, err := service.NewNotesService(repos, manager, service.WithMetrics(m))
	if err != nil {
		return startupErr(err)
	}
	handler, err := server.New(c, notesService, m)
	if err != nil {
		return startupErr(err)
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() { serverErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serverErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// openStore uses Postgres when DATABASE_URL is set and process memory otherwise.
func openStore(ctx context.Context, c config.Config) (service.Repos, sessions.Repo, func(), error) {
	dsn := c.GetDatabaseURL()
	if dsn == "" {
		log.Info().Msg("Using in-memory store")
		return service.Repos{
			Tenants: tenants.NewInMemoryRepo(),
			Users:   users.NewInMemoryUserRepo(),
			Notes:   notes.NewInMemoryRepo(),
		}, sessions.NewInMemoryRepo(), func() {}, nil
	}

	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		return service.Repos{}, nil, nil, err
	}
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		return service.Repos{}, nil, nil, err
	}
	pg := postgres.NewRepos(pool)
	log.Info().Msg("Using PostgreSQL store")
	return service.Repos{
		Tenants: pg.Tenants,
		Users:   pg.Users,
		Notes:   pg.Notes,
	}, pg.Sessions, pool.Close, nil
}

func purgeSessions(ctx context.Context, manager *sessions.Manager) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := manager.PurgeExpired(ctx); err != nil {
				log.Err(err).Msg("Failed to purge expired sessions")
			}
		}
	}
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
