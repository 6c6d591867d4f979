package httpapi

import (
	"net/http"

	"sopline.io/internal/auth"
)

type signupResponse struct {
	Organization auth.Organization `json:"organization"`
	User         auth.User         `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

type nameRequest struct {
	Name string `json:"name"`
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req auth.SignupInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	org, user, err := a.svc.Auth.Signup(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.signup", map[string]any{
		"organization_id": org.ID,
		"owner_id":        user.ID,
	})
	writeJSON(w, http.StatusCreated, signupResponse{Organization: org, User: user})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	session, err := a.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.session.issued", map[string]any{
		"user_id":    session.User.ID,
		"expires_at": session.ExpiresAt,
	})
	writeJSON(w, http.StatusOK, session)
}

// handleForgot always answers 200 so the response does not reveal whether
// the email is registered.
func (a *API) handleForgot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req forgotRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	if err := a.svc.Auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	if err := a.svc.Auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		handleServiceError(w, r, err)
		return
	}
	a.audit(r.Context(), "auth.password.reset", nil)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		user, err := a.svc.Auth.Profile(r.Context(), caller)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		var req profileRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		user, err := a.svc.Auth.UpdateProfile(r.Context(), caller, req.Name, req.AvatarURL)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleOrganization(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		org, err := a.svc.Auth.Organization(r.Context(), caller)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, org)
	case http.MethodPut:
		var req nameRequest
		if !decodeOrReject(w, r, &req) {
			return
		}
		org, err := a.svc.Auth.RenameOrganization(r.Context(), caller, req.Name)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "org.rename", map[string]any{"name": org.Name})
		writeJSON(w, http.StatusOK, org)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}
