package httpapi

import (
	"net/http"

	"sopline.io/internal/flow"
)

func (a *API) handleBoards(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		boards, err := a.svc.Flow.List(r.Context(), caller)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items(boards))
	case http.MethodPost:
		var req nameRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		b, err := a.svc.Flow.Create(r.Context(), caller, req.Name)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/flow-boards/"+b.ID)
		writeJSON(w, http.StatusCreated, b)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleBoardResource: PUT saves the scene, PATCH renames.
func (a *API) handleBoardResource(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		b, err := a.svc.Flow.Get(r.Context(), caller, id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	case http.MethodPut:
		var scene flow.Scene
		if !decodeOrReject(w, r, &scene) {
			return
		}
		if err := a.svc.Flow.SaveScene(r.Context(), caller, id, scene); err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case http.MethodPatch:
		var req nameRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		if err := a.svc.Flow.Rename(r.Context(), caller, id, req.Name); err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case http.MethodDelete:
		if err := a.svc.Flow.Delete(r.Context(), caller, id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}
