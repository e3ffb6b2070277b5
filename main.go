package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/s1natex/todo-sqlite/internal/cli"
	"github.com/s1natex/todo-sqlite/internal/config"
	"github.com/s1natex/todo-sqlite/internal/middleware"
	"github.com/s1natex/todo-sqlite/internal/telemetry"
	"github.com/s1natex/todo-sqlite/internal/todolist"
	"github.com/s1natex/todo-sqlite/internal/todos"
	"github.com/s1natex/todo-sqlite/internal/tui"
	"github.com/s1natex/todo-sqlite/internal/web"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.FromEnv(os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}

	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the SQLite database (\":memory:\" for a throwaway store)")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address for serve")
	group := fs.Bool("group", false, "ls: group todos by pending/done")
	fs.Usage = func() {
		cli.PrintHelp(fs.Output())
		fmt.Fprintln(fs.Output(), "\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	args = fs.Args()

	mode := "cli"
	if len(args) > 0 && (args[0] == "serve" || args[0] == "tui") {
		mode = args[0]
	}

	logger, closeLog, err := newLogger(cfg, mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "log file:", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.TraceExporter, os.Stderr)
	if err != nil {
		logger.Error("telemetry_setup_failed", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("telemetry_shutdown_failed", slog.String("error", err.Error()))
		}
	}()

	repo, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		logger.Error("store_init_failed", slog.String("path", cfg.DBPath), slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("store_close_failed", slog.String("error", err.Error()))
		}
	}()
	store := todos.Instrument(repo, logger)

	switch mode {
	case "serve":
		if err := serve(ctx, cfg, store, logger); err != nil {
			logger.Error("server_error", slog.String("error", err.Error()))
			return 1
		}
		return 0
	case "tui":
		if err := tui.Run(ctx, store, logger); err != nil && ctx.Err() == nil {
			logger.Error("tui_error", slog.String("error", err.Error()))
			fmt.Fprintln(os.Stderr, "tui:", err)
			return 1
		}
		return 0
	default:
		return cli.Run(ctx, args, cli.Options{
			Repo:   store,
			Logger: logger,
			In:     os.Stdin,
			Out:    os.Stdout,
			Err:    os.Stderr,
			Group:  *group,
		})
	}
}

// openStore opens and initializes the database at path. An empty path means
// the per-user default location.
func openStore(ctx context.Context, path string) (*todos.SQLiteRepo, error) {
	dsn := path
	if path != ":memory:" {
		if path == "" {
			p, err := config.DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve default db path: %w", err)
			}
			path = p
		}
		d, err := todos.SQLiteFileDSN(path)
		if err != nil {
			return nil, fmt.Errorf("prepare db path: %w", err)
		}
		dsn = d
	}

	repo, err := todos.NewSQLiteRepo(dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := repo.Init(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return repo, nil
}

func serve(ctx context.Context, cfg config.Config, repo todos.Repository, logger *slog.Logger) error {
	list := todolist.New(repo, todolist.AnswerFromContext, logger)
	if err := list.Load(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, repo, list, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", slog.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// newRouter wires health, metrics, the JSON API and the web page behind the
// middleware stack.
func newRouter(cfg config.Config, repo todos.Repository, list *todolist.Controller, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(15 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-Id", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.RateLimitMiddleware(middleware.NewLimiter(cfg.RateRPS, cfg.RateBurst)))
	r.Use(middleware.AuthMiddleware(middleware.AuthConfig{
		Mode:              middleware.AuthMode(cfg.AuthMode),
		APIKey:            cfg.APIKey,
		BearerToken:       cfg.BearerToken,
		ProtectedPrefixes: []string{"/api/"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	todos.RegisterRoutes(r, repo)
	web.NewServer(list, logger).RegisterRoutes(r)

	return r
}

// newLogger writes JSON to stdout, or to LOG_FILE when set. The terminal UI
// owns the screen, so without LOG_FILE it logs nowhere. One-shot commands log
// warnings and above to stderr so their output stays readable.
func newLogger(cfg config.Config, mode string) (*slog.Logger, func(), error) {
	var (
		w       io.Writer = os.Stdout
		closeFn           = func() {}
		level             = cfg.LogLevel
	)
	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeFn = func() { _ = f.Close() }
	case mode == "tui":
		w = io.Discard
	case mode == "cli":
		w = os.Stderr
		level = max(level, slog.LevelWarn)
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeFn, nil
}
