package httpapi

import (
	"net/http"

	"sopline.io/internal/auth"
	"sopline.io/internal/rbac"
)

type updateUserRequest struct {
	Name          *string    `json:"name"`
	AvatarURL     *string    `json:"avatar_url"`
	Role          *rbac.Role `json:"role"`
	DepartmentIDs *[]string  `json:"department_ids"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	users, err := a.svc.Auth.ListUsers(r.Context(), caller)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items(users))
}

func (a *API) handleInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	var req auth.InviteInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	user, err := a.svc.Auth.InviteUser(r.Context(), caller, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "user.invite", map[string]any{
		"target_id": user.ID,
		"role":      user.Role,
	})
	w.Header().Set("Location", "/v1/users/"+user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodPut:
		var req updateUserRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		user, err := a.svc.Auth.UpdateUser(r.Context(), caller, id, auth.UserUpdate{
			Name:          req.Name,
			AvatarURL:     req.AvatarURL,
			Role:          req.Role,
			DepartmentIDs: req.DepartmentIDs,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "user.update", map[string]any{
			"target_id": user.ID,
			"role":      user.Role,
		})
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := a.svc.Auth.DeleteUser(r.Context(), caller, id); err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "user.delete", map[string]any{"target_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}
