package httpapi

import (
	"net/http"
	"time"

	"sopline.io/internal/share"
)

type linkResponse struct {
	share.Link
	HasPassword bool   `json:"has_password"`
	URL         string `json:"url"`
}

type unlockRequest struct {
	Password string `json:"password"`
}

func (a *API) linkURL(l share.Link) string {
	if l.Kind == share.KindSection {
		return a.appURL + "/share/section/" + l.Token
	}
	return a.appURL + "/share/" + l.Token
}

func (a *API) renderLink(l share.Link) linkResponse {
	return linkResponse{Link: l, HasPassword: l.HasPassword(), URL: a.linkURL(l)}
}

// shareHandler serves GET (read), POST (ensure) and PUT (update) of the link
// of one SOP or section.
func (a *API) shareHandler(kind share.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerOrReject(w, r)
		if !ok {
			return
		}
		id := r.PathValue("id")
		switch r.Method {
		case http.MethodGet:
			link, err := a.svc.Share.Get(r.Context(), caller, kind, id)
			if err != nil {
				handleServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, a.renderLink(link))
		case http.MethodPost:
			link, created, err := a.svc.Share.Ensure(r.Context(), caller, kind, id)
			if err != nil {
				handleServiceError(w, r, err)
				return
			}
			code := http.StatusOK
			if created {
				code = http.StatusCreated
				a.audit(r.Context(), "share.create", map[string]any{"kind": kind, "target_id": id})
			}
			writeJSON(w, code, a.renderLink(link))
		case http.MethodPut:
			var req share.Update
			if !decodeOrReject(w, r, &req) {
				return
			}
			link, err := a.svc.Share.Update(r.Context(), caller, kind, id, req)
			if err != nil {
				handleServiceError(w, r, err)
				return
			}
			a.audit(r.Context(), "share.update", map[string]any{
				"kind":         kind,
				"target_id":    id,
				"enabled":      link.Enabled,
				"has_password": link.HasPassword(),
			})
			writeJSON(w, http.StatusOK, a.renderLink(link))
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodPut)
		}
	}
}

func (a *API) rotateHandler(kind share.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		caller, ok := callerOrReject(w, r)
		if !ok {
			return
		}
		id := r.PathValue("id")
		link, err := a.svc.Share.Rotate(r.Context(), caller, kind, id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		a.audit(r.Context(), "share.rotate", map[string]any{"kind": kind, "target_id": id})
		writeJSON(w, http.StatusOK, a.renderLink(link))
	}
}

func publicKind(w http.ResponseWriter, r *http.Request) (share.Kind, bool) {
	kind := share.Kind(r.PathValue("kind"))
	if !kind.Valid() {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return "", false
	}
	return kind, true
}

func (a *API) handleSharedView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	kind, ok := publicKind(w, r)
	if !ok {
		return
	}
	token := r.PathValue("token")
	var grant string
	if c, err := r.Cookie(kind.CookieName(token)); err == nil {
		grant = c.Value
	}
	var (
		view any
		err  error
	)
	if kind == share.KindSection {
		view, err = a.svc.Share.ViewSection(r.Context(), token, grant)
	} else {
		view, err = a.svc.Share.ViewSOP(r.Context(), token, grant)
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleUnlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	kind, ok := publicKind(w, r)
	if !ok {
		return
	}
	var req unlockRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	grant, err := a.svc.Share.Unlock(r.Context(), kind, r.PathValue("token"), req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if grant.Token != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     grant.Cookie,
			Value:    grant.Token,
			Path:     "/",
			Expires:  grant.ExpiresAt,
			MaxAge:   int(time.Until(grant.ExpiresAt).Seconds()),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
