package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oilpro/tanks-cli/internal/extract"
	"github.com/oilpro/tanks-cli/internal/importer"
	"github.com/oilpro/tanks-cli/internal/model"
	"github.com/oilpro/tanks-cli/internal/store"
	"github.com/oilpro/tanks-cli/internal/workbook"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inspection HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, _, err := initReconciler()
		if err != nil {
			return err
		}
		im := importer.New(rec, st)

		// Extraction is optional for the server: without an API key the
		// extract endpoint reports unavailable instead of failing startup.
		var ex *extract.Extractor
		if cfg.Anthropic.Key != "" {
			ex, err = initExtractor()
			if err != nil {
				return err
			}
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newAPIRouter(st, im, ex),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newAPIRouter(st store.Store, im *importer.Importer, ex *extract.Extractor) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/inspections", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		inspections, err := st.ListInspections(r.Context(), store.Filter{
			Status: model.InspectionStatus(q.Get("status")),
			TankID: q.Get("tank"),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if inspections == nil {
			inspections = []model.Inspection{}
		}
		writeJSON(w, http.StatusOK, inspections)
	})

	r.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		entries, err := st.ListDashboardEntries(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if entries == nil {
			entries = []model.DashboardEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})

	r.Get("/inspections/{reportNumber}", func(w http.ResponseWriter, r *http.Request) {
		reportNumber := chi.URLParam(r, "reportNumber")
		insp, err := st.GetInspectionByReportNumber(r.Context(), reportNumber)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if insp == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "inspection not found"})
			return
		}
		writeJSON(w, http.StatusOK, insp)
	})

	r.Post("/inspections/import", func(w http.ResponseWriter, r *http.Request) {
		path, cleanup, err := saveUpload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		defer cleanup()

		res, err := im.ImportFile(r.Context(), path, workbook.Options{})
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		res.Path = "" // server-side temp path is meaningless to the caller
		writeJSON(w, http.StatusCreated, res)
	})

	r.Post("/inspections/extract", func(w http.ResponseWriter, r *http.Request) {
		if ex == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "extraction not configured"})
			return
		}

		path, cleanup, err := saveUpload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		defer cleanup()

		bag, err := ex.ExtractFile(r.Context(), path)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}

		res, err := im.ImportBag(r.Context(), bag)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	})

	return r
}

// saveUpload writes the multipart "file" part to a temp file and returns
// its path. The original filename is preserved so tank-ID screening can
// reject identifiers that echo it.
func saveUpload(r *http.Request) (string, func(), error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, eris.Wrap(err, "serve: read upload")
	}
	defer file.Close()

	dir, err := os.MkdirTemp("", "tanks-upload-*")
	if err != nil {
		return "", nil, eris.Wrap(err, "serve: temp dir")
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, filepath.Base(header.Filename))
	out, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, eris.Wrap(err, "serve: create temp file")
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		cleanup()
		return "", nil, eris.Wrap(err, "serve: write upload")
	}
	return path, cleanup, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	zap.L().Error("serve: request failed", zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
