// Package httpapi exposes the sopline services over HTTP/JSON and the gRPC
// health protocol.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"sopline.io/internal/audit"
	"sopline.io/internal/auth"
	"sopline.io/internal/flow"
	"sopline.io/internal/library"
	"sopline.io/internal/obs"
	"sopline.io/internal/ratelimit"
	"sopline.io/internal/share"
)

const serviceName = "sopline-api"

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks readiness by pinging the store, when it supports it.
type ReadyProbe struct {
	Store Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	return rp.Store.Ping(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Services are the domain services served by the API.
type Services struct {
	Auth    *auth.Service
	Library *library.Service
	Share   *share.Service
	Flow    *flow.Service
}

// Limits are the per-client limiters applied to sensitive routes and to the
// whole API. A nil limiter does not limit.
type Limits struct {
	API    ratelimit.Limiter
	Signup ratelimit.Limiter
	Login  ratelimit.Limiter
	// Reset covers the forgot and reset password routes.
	Reset  ratelimit.Limiter
	Unlock ratelimit.Limiter
}

func (l Limits) withDefaults() Limits {
	for _, lim := range []*ratelimit.Limiter{&l.API, &l.Signup, &l.Login, &l.Reset, &l.Unlock} {
		if *lim == nil {
			*lim = ratelimit.Unlimited{}
		}
	}
	return l
}

type API struct {
	mux        *http.ServeMux
	svc        Services
	limits     Limits
	proxies    TrustedProxies
	readyProbe readinessChecker
	version    string
	appURL     string
	maxBody    int64
}

// Option configures API.
type Option func(*API)

// WithLimits installs the rate limiters.
func WithLimits(l Limits) Option {
	return func(a *API) { a.limits = l.withDefaults() }
}

// WithTrustedProxies makes rate limiting honour X-Forwarded-For from these peers.
func WithTrustedProxies(p TrustedProxies) Option {
	return func(a *API) { a.proxies = p }
}

// WithAppURL sets the public base URL used to render share links.
func WithAppURL(u string) Option {
	return func(a *API) { a.appURL = strings.TrimRight(u, "/") }
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

func New(svc Services, rp readinessChecker, version string, opts ...Option) (*API, error) {
	if svc.Auth == nil || svc.Library == nil || svc.Share == nil || svc.Flow == nil {
		return nil, errors.New("httpapi: every service is required")
	}
	if rp == nil {
		rp = ReadyProbe{}
	}
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		limits:     Limits{}.withDefaults(),
		readyProbe: rp,
		version:    version,
		maxBody:    1 << 20,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.routes()
	return a, nil
}

func (a *API) routes() {
	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.Handle("/v1/auth/signup", a.limited(a.handleSignup, a.limits.Signup))
	a.mux.Handle("/v1/auth/login", a.limited(a.handleLogin, a.limits.Login))
	a.mux.Handle("/v1/auth/forgot", a.limited(a.handleForgot, a.limits.Reset))
	a.mux.Handle("/v1/auth/reset", a.limited(a.handleReset, a.limits.Reset))
	a.mux.HandleFunc("/v1/profile", a.handleProfile)
	a.mux.HandleFunc("/v1/org", a.handleOrganization)

	// users
	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/invite", a.handleInvite)
	a.mux.HandleFunc("/v1/users/{id}", a.handleUserResource)

	// library
	a.mux.HandleFunc("/v1/departments", a.handleDepartments)
	a.mux.HandleFunc("/v1/departments/{id}", a.handleDepartmentResource)
	a.mux.HandleFunc("/v1/sections", a.handleSections)
	a.mux.HandleFunc("/v1/sections/reorder", a.handleSectionReorder)
	a.mux.HandleFunc("/v1/sections/{id}", a.handleSectionResource)
	a.mux.HandleFunc("/v1/sections/{id}/move", a.handleSectionMove)
	a.mux.HandleFunc("/v1/sops", a.handleSOPs)
	a.mux.HandleFunc("/v1/sops/reorder", a.handleSOPReorder)
	a.mux.HandleFunc("/v1/sops/{id}", a.handleSOPResource)
	a.mux.HandleFunc("/v1/sops/{id}/move", a.handleSOPMove)
	a.mux.HandleFunc("/v1/sops/{id}/steps", a.handleSteps)
	a.mux.HandleFunc("/v1/sops/{id}/steps/reorder", a.handleStepReorder)
	a.mux.HandleFunc("/v1/steps/{id}", a.handleStepResource)
	a.mux.HandleFunc("/v1/steps/{id}/move", a.handleStepMove)
	a.mux.HandleFunc("/v1/sops/{id}/comments", a.handleComments)
	a.mux.HandleFunc("/v1/sops/{id}/comments/{commentID}", a.handleCommentResource)
	a.mux.HandleFunc("/v1/search", a.handleSearch)

	// share management
	a.mux.HandleFunc("/v1/sops/{id}/share", a.shareHandler(share.KindSOP))
	a.mux.HandleFunc("/v1/sops/{id}/share/rotate", a.rotateHandler(share.KindSOP))
	a.mux.HandleFunc("/v1/sections/{id}/share", a.shareHandler(share.KindSection))
	a.mux.HandleFunc("/v1/sections/{id}/share/rotate", a.rotateHandler(share.KindSection))

	// public share links
	a.mux.HandleFunc("/v1/share/{kind}/{token}", a.handleSharedView)
	a.mux.Handle("/v1/share/{kind}/{token}/unlock", a.limited(a.handleUnlock, a.limits.Unlock))

	// flow boards
	a.mux.HandleFunc("/v1/flow-boards", a.handleBoards)
	a.mux.HandleFunc("/v1/flow-boards/{id}", a.handleBoardResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
}

func (a *API) limited(h http.HandlerFunc, l ratelimit.Limiter) http.Handler {
	return RateLimit(h, l, a.proxies)
}

// Handler returns the API with its middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.limits.API, a.proxies)
	h = MaxBodyBytes(h, a.maxBody)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func items[T any](v []T) listResponse[T] {
	if v == nil {
		v = []T{}
	}
	return listResponse[T]{Items: v}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// decodeJSON reads exactly one JSON value. The body size is capped by the
// MaxBodyBytes middleware.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// decodeOrReject decodes the body, answering 400 on failure.
func decodeOrReject(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	if err := audit.LogEvent(ctx, event, fields); err != nil {
		obs.Logger().Warn().Err(err).Str("event", event).Msg("audit_failed")
	}
}
