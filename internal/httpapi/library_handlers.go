package httpapi

import (
	"net/http"

	"sopline.io/internal/library"
	"sopline.io/internal/ordering"
)

type createSectionRequest struct {
	DepartmentID string `json:"department_id"`
	Title        string `json:"title"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type moveRequest struct {
	Direction string `json:"direction"`
}

type reorderSectionsRequest struct {
	DepartmentID string          `json:"department_id"`
	Sections     []ordering.Item `json:"sections"`
}

type reorderSOPsRequest struct {
	DepartmentID string          `json:"department_id"`
	SectionID    string          `json:"section_id"`
	SOPs         []ordering.Item `json:"sops"`
}

type reorderStepsRequest struct {
	Steps []ordering.Item `json:"steps"`
}

type editCommentRequest struct {
	Body string `json:"body"`
}

var reordered = map[string]any{"success": true}

// --- departments ---

func (a *API) handleDepartments(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		depts, err := a.svc.Library.ListDepartments(r.Context(), caller)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items(depts))
	case http.MethodPost:
		var req nameRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		d, err := a.svc.Library.CreateDepartment(r.Context(), caller, req.Name)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/departments/"+d.ID)
		writeJSON(w, http.StatusCreated, d)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDepartmentResource(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodPut:
		var req nameRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		d, err := a.svc.Library.RenameDepartment(r.Context(), caller, id, req.Name)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	case http.MethodDelete:
		if err := a.svc.Library.DeleteDepartment(r.Context(), caller, id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "department.delete", map[string]any{"department_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}

// --- sections ---

func (a *API) handleSections(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		sections, err := a.svc.Library.ListSections(r.Context(), caller, r.URL.Query().Get("department_id"))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items(sections))
	case http.MethodPost:
		var req createSectionRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		sec, err := a.svc.Library.CreateSection(r.Context(), caller, req.DepartmentID, req.Title)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/sections/"+sec.ID)
		writeJSON(w, http.StatusCreated, sec)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleSectionResource(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodPut:
		var req titleRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		sec, err := a.svc.Library.RenameSection(r.Context(), caller, id, req.Title)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sec)
	case http.MethodDelete:
		if err := a.svc.Library.DeleteSection(r.Context(), caller, id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleSectionReorder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	var req reorderSectionsRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	if err := a.svc.Library.ReorderSections(r.Context(), caller, req.DepartmentID, req.Sections); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reordered)
}

// moveHandler serves the single-step moves of sections, SOPs and steps.
func (a *API) moveHandler(w http.ResponseWriter, r *http.Request, move func(id string, dir ordering.Direction) ([]ordering.Item, error)) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req moveRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	dir, err := ordering.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	order, err := move(r.PathValue("id"), dir)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items(order))
}

func (a *API) handleSectionMove(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	a.moveHandler(w, r, func(id string, dir ordering.Direction) ([]ordering.Item, error) {
		return a.svc.Library.MoveSection(r.Context(), caller, id, dir)
	})
}

// --- SOPs ---

func (a *API) handleSOPs(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		sops, err := a.svc.Library.ListSOPs(r.Context(), caller, library.SOPFilter{
			DepartmentID: q.Get("department_id"),
			SectionID:    q.Get("section_id"),
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items(sops))
	case http.MethodPost:
		var req library.SOPInput
		if !decodeOrReject(w, r, &req) {
			return
		}
		sop, err := a.svc.Library.CreateSOP(r.Context(), caller, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/sops/"+sop.ID)
		writeJSON(w, http.StatusCreated, sop)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	sops, err := a.svc.Library.Search(r.Context(), caller, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items(sops))
}

func (a *API) handleSOPResource(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		detail, err := a.svc.Library.GetSOP(r.Context(), caller, id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case http.MethodPut:
		var req library.SOPUpdate
		if !decodeOrReject(w, r, &req) {
			return
		}
		sop, err := a.svc.Library.UpdateSOP(r.Context(), caller, id, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sop)
	case http.MethodDelete:
		if err := a.svc.Library.DeleteSOP(r.Context(), caller, id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "sop.delete", map[string]any{"sop_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleSOPReorder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	var req reorderSOPsRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	bucket := library.Bucket{DepartmentID: req.DepartmentID, SectionID: req.SectionID}
	if err := a.svc.Library.ReorderSOPs(r.Context(), caller, bucket, req.SOPs); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reordered)
}

func (a *API) handleSOPMove(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	a.moveHandler(w, r, func(id string, dir ordering.Direction) ([]ordering.Item, error) {
		return a.svc.Library.MoveSOP(r.Context(), caller, id, dir)
	})
}

// --- steps ---

func (a *API) handleSteps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	var req library.StepInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	step, err := a.svc.Library.AddStep(r.Context(), caller, r.PathValue("id"), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, step)
}

func (a *API) handleStepReorder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	var req reorderStepsRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	if err := a.svc.Library.ReorderSteps(r.Context(), caller, r.PathValue("id"), req.Steps); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reordered)
}

func (a *API) handleStepResource(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodPut:
		var req library.StepUpdate
		if !decodeOrReject(w, r, &req) {
			return
		}
		step, err := a.svc.Library.UpdateStep(r.Context(), caller, id, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, step)
	case http.MethodDelete:
		if err := a.svc.Library.DeleteStep(r.Context(), caller, id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleStepMove(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	a.moveHandler(w, r, func(id string, dir ordering.Direction) ([]ordering.Item, error) {
		return a.svc.Library.MoveStep(r.Context(), caller, id, dir)
	})
}

// --- comments ---

func (a *API) handleComments(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	sopID := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		comments, err := a.svc.Library.ListComments(r.Context(), caller, sopID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items(comments))
	case http.MethodPost:
		var req library.CommentInput
		if !decodeOrReject(w, r, &req) {
			return
		}
		c, err := a.svc.Library.AddComment(r.Context(), caller, sopID, req)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCommentResource(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	sopID, id := r.PathValue("id"), r.PathValue("commentID")
	switch r.Method {
	case http.MethodPut:
		var req editCommentRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		c, err := a.svc.Library.EditComment(r.Context(), caller, sopID, id, req.Body)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if err := a.svc.Library.DeleteComment(r.Context(), caller, sopID, id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}
