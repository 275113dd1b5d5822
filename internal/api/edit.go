package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ivlev/scene2video/internal/scene"
	"github.com/ivlev/scene2video/internal/store"
)

var errBadRequest = errors.New("bad request")

// editFunc derives the edited composition from the stored one.
type editFunc func(w http.ResponseWriter, r *http.Request, comp *scene.Composition) (*scene.Composition, error)

// editHandler loads a stored composition, applies edit and stores the result
// only if it still passes strict validation.
func editHandler(cfg ServerConfig, edit editFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := cfg.Repository.Get(r.Context(), id)
		if err != nil {
			writeStoreError(w, err, "composition not found")
			return
		}

		comp, err := edit(w, r, rec.Composition)
		if err != nil {
			switch {
			case errors.Is(err, scene.ErrSceneIndex), errors.Is(err, scene.ErrElementNotFound):
				WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			default:
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			}
			return
		}
		if err := scene.Validate(comp); err != nil {
			WriteJSON(w, http.StatusUnprocessableEntity, ValidationToResponse(err))
			return
		}

		saved, err := cfg.Repository.Save(r.Context(), &store.Record{ID: rec.ID, Composition: comp})
		if err != nil {
			cfg.Logger.Error("failed to save composition", "composition_id", rec.ID, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to save composition", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, saved)
	}
}

func sceneIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, fmt.Errorf("%w: scene index must be an integer", errBadRequest)
	}
	return i, nil
}

func queryIndex(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return i, nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, scene.Format, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	format := scene.FormatJSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = scene.FormatYAML
	}
	return data, format, nil
}

func readScene(w http.ResponseWriter, r *http.Request) (scene.Scene, error) {
	data, format, err := readBody(w, r)
	if err != nil {
		return scene.Scene{}, err
	}
	s, err := scene.DecodeScene(data, format)
	if err != nil {
		return scene.Scene{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return s, nil
}

func readElement(w http.ResponseWriter, r *http.Request) (scene.Element, error) {
	data, format, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	el, err := scene.DecodeElement(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return el, nil
}

// POST /compositions/{id}/scenes?at=N inserts a scene, appending by default.
func addSceneEdit(w http.ResponseWriter, r *http.Request, comp *scene.Composition) (*scene.Composition, error) {
	at, err := queryIndex(r, "at", len(comp.Scenes))
	if err != nil {
		return nil, err
	}
	s, err := readScene(w, r)
	if err != nil {
		return nil, err
	}
	return comp.AddScene(at, s)
}

func updateSceneEdit(w http.ResponseWriter, r *http.Request, comp *scene.Composition) (*scene.Composition, error) {
	i, err := sceneIndex(r)
	if err != nil {
		return nil, err
	}
	s, err := readScene(w, r)
	if err != nil {
		return nil, err
	}
	return comp.UpdateScene(i, s)
}

func removeSceneEdit(w http.ResponseWriter, r *http.Request, comp *scene.Composition) (*scene.Composition, error) {
	i, err := sceneIndex(r)
	if err != nil {
		return nil, err
	}
	return comp.RemoveScene(i)
}

// POST /compositions/{id}/scenes/{index}/move?to=N
func moveSceneEdit(w http.ResponseWriter, r *http.Request, comp *scene.Composition) (*scene.Composition, error) {
	from, err := sceneIndex(r)
	if err != nil {
		return nil, err
	}
	if r.URL.Query().Get("to") == "" {
		return nil, fmt.Errorf("%w: to is required", errBadRequest)
	}
	to, err := queryIndex(r, "to", 0)
	if err != nil {
		return nil, err
	}
	return comp.MoveScene(from, to)
}

func addElementEdit(w http.ResponseWriter, r *http.Request, comp *scene.Composition) (*scene.Composition, error) {
	i, err := sceneIndex(r)
	if err != nil {
		return nil, err
	}
	el, err := readElement(w, r)
	if err != nil {
		return nil, err
	}
	return comp.AddElement(i, el)
}

// replaceElementEdit takes the element id from the path; a body that names a
// different id is refused.
func replaceElementEdit(w http.ResponseWriter, r *http.Request, comp *scene.Composition) (*scene.Composition, error) {
	i, err := sceneIndex(r)
	if err != nil {
		return nil, err
	}
	el, err := readElement(w, r)
	if err != nil {
		return nil, err
	}
	id := chi.URLParam(r, "elementID")
	switch base := el.Base(); base.ID {
	case "":
		base.ID = id
	case id:
	default:
		return nil, fmt.Errorf("%w: element id %q does not match %q", errBadRequest, base.ID, id)
	}
	return comp.ReplaceElement(i, el)
}

func removeElementEdit(w http.ResponseWriter, r *http.Request, comp *scene.Composition) (*scene.Composition, error) {
	i, err := sceneIndex(r)
	if err != nil {
		return nil, err
	}
	return comp.RemoveElement(i, chi.URLParam(r, "elementID"))
}
