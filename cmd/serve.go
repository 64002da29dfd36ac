package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shriharshan/incident-commander/internal/model"
	"github.com/shriharshan/incident-commander/internal/store"
	"github.com/shriharshan/incident-commander/internal/trigger"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long:  "Accepts alert and log-subscription webhooks, runs investigations asynchronously, and serves stored reports plus Prometheus metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		router := newRouter(ctx, env)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newRouter builds the HTTP surface. Investigations triggered by webhooks
// run detached from the request, tied to the server's lifetime context.
func newRouter(serverCtx context.Context, env *commanderEnv) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhook/alert", func(w http.ResponseWriter, req *http.Request) {
		var alert model.Alert
		if err := json.NewDecoder(req.Body).Decode(&alert); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if alert.Timestamp.IsZero() {
			alert.Timestamp = time.Now().UTC()
		}
		if alert.TriggerSource == "" {
			alert.TriggerSource = "webhook"
		}
		if err := alert.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		runDetached(serverCtx, env, alert)
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "accepted",
			"service": alert.Service,
		})
	})

	r.Post("/webhook/logs", func(w http.ResponseWriter, req *http.Request) {
		payload, err := io.ReadAll(req.Body)
		if err != nil || !trigger.IsSubscription(payload) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected a log subscription payload"})
			return
		}
		batch, err := trigger.ParseSubscription(payload)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		analysis := trigger.Categorize(batch.ErrorEvents)
		if !trigger.ShouldInvestigate(cfg.Trigger, analysis) {
			writeJSON(w, http.StatusOK, map[string]any{
				"status":       "no_action",
				"total_errors": analysis.TotalErrors,
			})
			return
		}

		alert := trigger.DeriveAlert(batch, analysis, cfg.Trigger, time.Now().UTC())
		runDetached(serverCtx, env, alert)
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":            "accepted",
			"service":           alert.Service,
			"total_errors":      analysis.TotalErrors,
			"dominant_category": analysis.Dominant,
		})
	})

	r.Get("/reports", func(w http.ResponseWriter, req *http.Request) {
		filter := store.ReportFilter{Service: req.URL.Query().Get("service")}
		records, err := env.Store.ListReports(req.Context(), filter)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list reports failed"})
			return
		}
		type summary struct {
			IncidentID string        `json:"incident_id"`
			Service    string        `json:"service"`
			Outcome    model.Outcome `json:"outcome"`
			CreatedAt  time.Time     `json:"created_at"`
		}
		out := make([]summary, len(records))
		for i, rec := range records {
			out[i] = summary{rec.IncidentID, rec.Service, rec.Outcome, rec.CreatedAt}
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Get("/reports/{incidentID}", func(w http.ResponseWriter, req *http.Request) {
		rec, err := env.Store.GetReport(req.Context(), chi.URLParam(req, "incidentID"))
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "get report failed"})
			return
		}
		if req.URL.Query().Get("format") == "markdown" {
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(rec.Markdown))
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	return r
}

// runDetached starts an investigation that outlives the webhook request.
func runDetached(serverCtx context.Context, env *commanderEnv, alert model.Alert) {
	go func() {
		result, err := env.Pipeline.Run(serverCtx, alert)
		if err != nil {
			zap.L().Error("webhook investigation failed",
				zap.String("service", alert.Service),
				zap.Error(err),
			)
			return
		}
		zap.L().Info("webhook investigation complete",
			zap.String("incident_id", result.IncidentID),
			zap.String("outcome", string(result.Outcome)),
		)
	}()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
