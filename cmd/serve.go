package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/curasense/triage-cli/internal/lookupcache"
	"github.com/curasense/triage-cli/internal/triage"
)

var (
	servePort       int
	serveNoPrewarm  bool
	requestTimeout  = 60 * time.Second
	maxRequestBytes = int64(1 << 20)
	prewarmParallel = 4
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the triage HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Cache != nil && !serveNoPrewarm && cfg.DBpedia.PrewarmCount > 0 {
			go prewarm(ctx, env.Cache, env.Index.Names(cfg.DBpedia.PrewarmCount))
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.Service, cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// triager is the subset of triage.Service used by the HTTP handlers.
type triager interface {
	Triage(ctx context.Context, req triage.Request) triage.Response
}

// newRouter builds the HTTP routes.
func newRouter(svc triager, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":          "triage api running",
			"message":         "Symptom triage with knowledge base and DBpedia cross-checks",
			"triage_endpoint": "/api/v1/triage",
		})
	})

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/v1/triage", func(w http.ResponseWriter, req *http.Request) {
		var body triage.Request
		dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBytes))
		if err := dec.Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		writeJSON(w, http.StatusOK, svc.Triage(req.Context(), body))
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// prewarm fills the lookup cache for the given names so the first requests
// do not pay for remote lookups. Failures are logged and ignored.
func prewarm(ctx context.Context, cache *lookupcache.Cache, names []string) {
	if len(names) == 0 {
		zap.L().Info("no knowledge base names to prewarm")
		return
	}
	zap.L().Info("prewarming dbpedia cache", zap.Int("names", len(names)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prewarmParallel)
	matched := make([]bool, len(names))
	for i, name := range names {
		g.Go(func() error {
			r := cache.LookupCached(gctx, lookupcache.Key(name), name)
			matched[i] = r.Matched
			return nil
		})
	}
	_ = g.Wait()

	hits := 0
	for _, m := range matched {
		if m {
			hits++
		}
	}
	zap.L().Info("dbpedia prewarm complete",
		zap.Int("names", len(names)),
		zap.Int("matched", hits),
	)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveNoPrewarm, "no-prewarm", false, "skip the startup cache prewarm")
	rootCmd.AddCommand(serveCmd)
}
