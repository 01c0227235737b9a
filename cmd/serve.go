package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/datacleaner-cli/internal/engine"
	"github.com/sells-group/datacleaner-cli/internal/model"
	"github.com/sells-group/datacleaner-cli/internal/recipe"
	"github.com/sells-group/datacleaner-cli/internal/storage"
	"github.com/sells-group/datacleaner-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cleaning job HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/jobs", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				SourceFile string         `json:"source_file"`
				Recipe     string         `json:"recipe"`
				Params     map[string]any `json:"params"`
				UserID     string         `json:"user_id"`
				Plan       string         `json:"plan"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if body.SourceFile == "" || body.Recipe == "" {
				writeError(w, http.StatusBadRequest, "source_file and recipe are required")
				return
			}
			if err := recipe.ValidateParams(model.RecipeType(body.Recipe), body.Params); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}

			job, err := e.Store.CreateJob(req.Context(), model.Job{
				UserID:     body.UserID,
				Plan:       model.Plan(body.Plan),
				SourceFile: body.SourceFile,
				Recipe:     model.RecipeType(body.Recipe),
				Params:     body.Params,
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, "could not create job")
				return
			}

			// Execution outlives the request; it stops on server shutdown.
			go func() {
				if _, err := e.Engine.Execute(ctx, job.ID); err != nil {
					zap.L().Error("job execution failed",
						zap.String("job_id", job.ID),
						zap.Error(err),
					)
				}
			}()

			writeJSON(w, http.StatusAccepted, job)
		})

		r.Get("/jobs", func(w http.ResponseWriter, req *http.Request) {
			jobs, err := e.Store.ListJobs(req.Context(), store.JobFilter{
				Status: model.JobStatus(req.URL.Query().Get("status")),
				UserID: req.URL.Query().Get("user"),
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, "could not list jobs")
				return
			}
			writeJSON(w, http.StatusOK, jobs)
		})

		r.Get("/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
			job, err := e.Store.GetJob(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			writeJSON(w, http.StatusOK, job)
		})

		r.Get("/jobs/{id}/runs", func(w http.ResponseWriter, req *http.Request) {
			runs, err := e.Store.ListRecipeRuns(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, http.StatusInternalServerError, "could not list recipe runs")
				return
			}
			writeJSON(w, http.StatusOK, runs)
		})

		r.Post("/jobs/{id}/approve", func(w http.ResponseWriter, req *http.Request) {
			job, err := e.Store.GetJob(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			if err := e.Engine.StateMachine().Approve(req.Context(), job); err != nil {
				if engine.IsInvalidTransition(err) {
					writeError(w, http.StatusConflict, err.Error())
					return
				}
				writeError(w, http.StatusInternalServerError, "could not approve job")
				return
			}
			writeJSON(w, http.StatusOK, job)
		})

		r.Get("/jobs/{id}/preview", artifactHandler(e, storage.KindPreview))
		r.Get("/jobs/{id}/result", artifactHandler(e, storage.KindResult))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func artifactHandler(e *env, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		job, err := e.Store.GetJob(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}

		key := job.PreviewKey
		if kind == storage.KindResult {
			key = job.ResultKey
		}
		if key == "" {
			writeError(w, http.StatusNotFound, "artifact not available")
			return
		}

		data, err := e.Storage.Get(req.Context(), key)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not read artifact")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
