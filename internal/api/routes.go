package api

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/ivlev/scene2video/internal/extract"
	"github.com/ivlev/scene2video/internal/raster"
	"github.com/ivlev/scene2video/internal/scene"
	"github.com/ivlev/scene2video/internal/store"
	"github.com/ivlev/scene2video/internal/system"
	"github.com/ivlev/scene2video/internal/timeline"
)

const maxBodyBytes = 8 << 20

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Post("/validate", validateHandler(cfg))
	r.Post("/duration", durationHandler(cfg))
	r.Post("/frame", frameHandler(cfg))
	r.Post("/extract", extractHandler(cfg))
	r.Get("/stream", streamHandler(cfg))

	r.Route("/compositions", func(r chi.Router) {
		r.Post("/", createCompositionHandler(cfg))
		r.Get("/", listCompositionsHandler(cfg))
		r.Get("/{id}", getCompositionHandler(cfg))
		r.Put("/{id}", updateCompositionHandler(cfg))
		r.Delete("/{id}", deleteCompositionHandler(cfg))
		r.Get("/{id}/frames/{frame}", compositionFrameHandler(cfg))

		r.Post("/{id}/scenes", editHandler(cfg, addSceneEdit))
		r.Put("/{id}/scenes/{index}", editHandler(cfg, updateSceneEdit))
		r.Delete("/{id}/scenes/{index}", editHandler(cfg, removeSceneEdit))
		r.Post("/{id}/scenes/{index}/move", editHandler(cfg, moveSceneEdit))
		r.Post("/{id}/scenes/{index}/elements", editHandler(cfg, addElementEdit))
		r.Put("/{id}/scenes/{index}/elements/{elementID}", editHandler(cfg, replaceElementEdit))
		r.Delete("/{id}/scenes/{index}/elements/{elementID}", editHandler(cfg, removeElementEdit))

		r.Post("/{id}/exports", createExportHandler(cfg))
		r.Get("/{id}/exports", listExportsHandler(cfg))
	})
	r.Get("/exports/{id}", getExportHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exports := "disabled"
		if cfg.Runner != nil {
			exports = "idle"
			if cfg.Runner.Busy() {
				exports = "rendering"
			}
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
			Exports: exports,
		})
	}
}

// readComposition decodes the request body as JSON, or YAML when the
// content type says so.
func readComposition(w http.ResponseWriter, r *http.Request) (*scene.Composition, error) {
	data, format, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	return scene.Decode(data, format)
}

func validateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		comp, err := readComposition(w, r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, ValidationToResponse(scene.Validate(comp)))
	}
}

func durationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		comp, err := readComposition(w, r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		total := timeline.TotalFrames(comp.Scenes)
		WriteJSON(w, http.StatusOK, DurationResponse{
			TotalFrames: total,
			Seconds:     timeline.Seconds(total, comp.Meta.FPS),
			FPS:         comp.Meta.FPS,
		})
	}
}

func parseFrame(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func frameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, ok := parseFrame(r.URL.Query().Get("frame"))
		if !ok {
			WriteError(w, http.StatusBadRequest, "frame must be an integer", "BAD_REQUEST")
			return
		}
		comp, err := readComposition(w, r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		resp, ok := FrameToResponse(comp, frame)
		if !ok {
			WriteError(w, http.StatusUnprocessableEntity, scene.ErrNoScenes.Error(), "NO_SCENES")
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func extractHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExtractRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, ScenesToResponse(extract.Extract(req.Text, req.Final)))
	}
}

func createCompositionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saveComposition(cfg, w, r, "", http.StatusCreated)
	}
}

func updateCompositionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := cfg.Repository.Get(r.Context(), id); err != nil {
			writeStoreError(w, err, "composition not found")
			return
		}
		saveComposition(cfg, w, r, id, http.StatusOK)
	}
}

func saveComposition(cfg ServerConfig, w http.ResponseWriter, r *http.Request, id string, status int) {
	comp, err := readComposition(w, r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}
	if err := scene.Validate(comp); err != nil {
		WriteJSON(w, http.StatusUnprocessableEntity, ValidationToResponse(err))
		return
	}

	rec, err := cfg.Repository.Save(r.Context(), &store.Record{ID: id, Composition: comp})
	if err != nil {
		cfg.Logger.Error("failed to save composition", "error", err)
		WriteError(w, http.StatusInternalServerError, "failed to save composition", "INTERNAL_ERROR")
		return
	}
	WriteJSON(w, status, rec)
}

func listCompositionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		records, err := cfg.Repository.List(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list compositions", "INTERNAL_ERROR")
			return
		}
		if records == nil {
			records = []*store.Record{}
		}
		WriteJSON(w, http.StatusOK, CompositionsResponse{Compositions: records})
	}
}

func getCompositionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := cfg.Repository.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, err, "composition not found")
			return
		}
		WriteJSON(w, http.StatusOK, rec)
	}
}

func deleteCompositionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Repository.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeStoreError(w, err, "composition not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func compositionFrameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, ok := parseFrame(chi.URLParam(r, "frame"))
		if !ok {
			WriteError(w, http.StatusBadRequest, "frame must be an integer", "BAD_REQUEST")
			return
		}
		rec, err := cfg.Repository.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, err, "composition not found")
			return
		}
		comp := rec.Composition

		if r.URL.Query().Get("format") != "png" {
			resp, ok := FrameToResponse(comp, frame)
			if !ok {
				WriteError(w, http.StatusUnprocessableEntity, scene.ErrNoScenes.Error(), "NO_SCENES")
				return
			}
			WriteJSON(w, http.StatusOK, resp)
			return
		}

		if comp.Meta.Width <= 0 || comp.Meta.Height <= 0 {
			WriteError(w, http.StatusUnprocessableEntity, "composition has no canvas size", "INVALID_COMPOSITION")
			return
		}
		img, err := raster.New(comp.Meta.Width, comp.Meta.Height, cfg.Images).Frame(comp, frame)
		defer system.PutImage(img)
		if err != nil {
			cfg.Logger.Warn("frame rendered with errors", "composition_id", rec.ID, "frame", frame, "error", err)
		}
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, img); err != nil {
			cfg.Logger.Error("failed to encode frame", "error", err)
		}
	}
}

func createExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Runner == nil {
			WriteError(w, http.StatusServiceUnavailable, "exports are disabled", "UNAVAILABLE")
			return
		}
		id := chi.URLParam(r, "id")
		if _, err := cfg.Repository.Get(r.Context(), id); err != nil {
			writeStoreError(w, err, "composition not found")
			return
		}

		var req ExportRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}
		output, err := exportPath(cfg.ExportDir, req.Output)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_OUTPUT")
			return
		}
		if output == "" {
			output = filepath.Join(cfg.ExportDir, id+"-"+store.NewID()[:8]+".mp4")
		} else if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
			cfg.Logger.Error("failed to create export directory", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to create export directory", "INTERNAL_ERROR")
			return
		}

		exp, err := cfg.Runner.Enqueue(r.Context(), id, output)
		if err != nil {
			WriteError(w, http.StatusServiceUnavailable, err.Error(), "UNAVAILABLE")
			return
		}
		WriteJSON(w, http.StatusAccepted, exp)
	}
}

// exportPath places a client-chosen output name inside dir. Absolute paths
// and paths that climb out of dir are refused.
func exportPath(dir, output string) (string, error) {
	if output == "" {
		return "", nil
	}
	if !filepath.IsLocal(output) {
		return "", fmt.Errorf("output %q must be a relative path inside the export directory", output)
	}
	return filepath.Join(dir, output), nil
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exports, err := cfg.Repository.ListExports(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list exports", "INTERNAL_ERROR")
			return
		}
		if exports == nil {
			exports = []*store.Export{}
		}
		WriteJSON(w, http.StatusOK, ExportsResponse{Exports: exports})
	}
}

func getExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exp, err := cfg.Repository.GetExport(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, err, "export not found")
			return
		}
		WriteJSON(w, http.StatusOK, exp)
	}
}

func writeStoreError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, http.StatusNotFound, notFound, "NOT_FOUND")
		return
	}
	WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
}
