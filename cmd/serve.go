package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/analyst"
	"github.com/sells-group/funnel-cli/internal/pipeline"
	"github.com/sells-group/funnel-cli/internal/store"
	"github.com/sells-group/funnel-cli/pkg/anthropic"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dataset, QA report, and analyst over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("http server listening", zap.Int("port", cfg.Server.Port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			zap.L().Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return eris.Wrap(err, "serve: listen")
		}
	},
}

func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if cfg.Server.BearerToken != "" {
			r.Use(bearerAuth(cfg.Server.BearerToken))
		}
		r.Get("/api/dataset", handleDataset(st))
		r.Get("/api/qa", handleQA(st))
		r.Post("/api/sync", handleSync(st))
		r.Post("/api/ask", handleAsk(st))
	})
	return r
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != token {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleDataset(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := st.Latest(r.Context())
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap.Dataset)
	}
}

func handleQA(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := st.Latest(r.Context())
		if err != nil {
			writeStoreErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"snapshot_id": snap.ID,
			"created_at":  snap.CreatedAt,
			"qa":          snap.QA,
		})
	}
}

func handleSync(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			BoardID string `json:"board_id"`
			DryRun  bool   `json:"dry_run"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
		}

		pcfg, err := pipelineConfig(req.BoardID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		res, err := pipeline.New(newBoardClient(), st, pcfg).Run(r.Context(), req.DryRun)
		if err != nil {
			zap.L().Error("sync failed", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "sync failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"snapshot_id":  res.Snapshot.ID,
			"item_count":   res.Snapshot.ItemCount,
			"dataset_hash": res.Snapshot.DatasetHash,
			"qa_status":    res.Snapshot.QA.Status,
			"qa_score":     res.Snapshot.QA.Score,
			"dry_run":      req.DryRun,
		})
	}
}

func handleAsk(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Question) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
			return
		}
		if cfg.Anthropic.Key == "" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analyst not configured"})
			return
		}

		snap, err := st.Latest(r.Context())
		if err != nil {
			writeStoreErr(w, err)
			return
		}

		a := analyst.New(anthropic.NewClient(cfg.Anthropic.Key),
			analyst.WithModel(cfg.Anthropic.Model),
			analyst.WithMaxTokens(int64(cfg.Anthropic.MaxTokens)))
		answer, err := a.Ask(r.Context(), snap.Dataset, req.Question)
		if err != nil {
			zap.L().Error("ask failed", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "ask failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
	}
}

func writeStoreErr(w http.ResponseWriter, err error) {
	if eris.Is(err, store.ErrNoSnapshot) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot"})
		return
	}
	zap.L().Error("store error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
