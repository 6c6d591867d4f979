package library

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"sopline.io/internal/obs"
	"sopline.io/internal/rbac"
)

const (
	minTitleLength = 2
	// stepAppendAttempts bounds retries of the serializable step insert.
	stepAppendAttempts = 3
)

// Service exposes the library operations to authenticated callers.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("library store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// authorize maps an engine decision onto the package errors and counts it.
func authorize(actor rbac.Caller, action rbac.Action, res rbac.Resource) error {
	out := rbac.Decide(actor, action, res)
	obs.RecordDecision(string(action), out.String())
	switch out {
	case rbac.Allowed:
		return nil
	case rbac.NotFound:
		return ErrNotFound
	default:
		return ErrForbidden
	}
}

// hideMissing turns the store's not-found into the package error.
func hideMissing(err error, what string) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func cleanTitle(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if len([]rune(v)) < minTitleLength {
		return "", fmt.Errorf("%w: %s must be at least %d characters", ErrInvalidInput, field, minTitleLength)
	}
	return v, nil
}

var (
	youTubeURLPattern = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|embed/|v/)|youtu\.be/)([A-Za-z0-9_-]{11})`)
	youTubeIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractYouTubeID returns the 11-character video id in a YouTube URL, or the
// input itself when it already is an id.
func ExtractYouTubeID(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if m := youTubeURLPattern.FindStringSubmatch(input); len(m) == 2 {
		return m[1], true
	}
	if youTubeIDPattern.MatchString(input) {
		return input, true
	}
	return "", false
}

func validateVideo(vt VideoType, rawURL string) (VideoType, string, string, error) {
	if vt == "" {
		vt = VideoYouTube
	}
	if VideoType(strings.ToUpper(string(vt))) != VideoYouTube {
		return "", "", "", fmt.Errorf("%w: unsupported video type %q", ErrInvalidInput, vt)
	}
	rawURL = strings.TrimSpace(rawURL)
	id, ok := ExtractYouTubeID(rawURL)
	if !ok {
		return "", "", "", fmt.Errorf("%w: video url has no YouTube id", ErrInvalidInput)
	}
	return VideoYouTube, rawURL, id, nil
}
