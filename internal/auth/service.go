package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"

	"sopline.io/internal/ids"
	"sopline.io/internal/rbac"
)

const (
	defaultSessionTTL = 12 * time.Hour
	defaultResetTTL   = time.Hour
	resetTokenBytes   = 32
	minPasswordLength = 8
	minNameLength     = 2
)

// DefaultDepartments are created for every new organization.
var DefaultDepartments = []string{"Operations", "Warehouse", "Customer Support", "Finance"}

// Service implements signup, login, session verification, user management
// and password reset.
type Service struct {
	store      Store
	signer     *Signer
	notifier   Notifier
	now        func() time.Time
	issuer     string
	sessionTTL time.Duration
	resetTTL   time.Duration
	appURL     string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithSessionTTL configures session token lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
		return nil
	}
}

// WithResetTTL configures how long a password reset token stays valid.
func WithResetTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.resetTTL = ttl
		}
		return nil
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		s.issuer = strings.TrimSpace(issuer)
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithNotifier sets how reset links are delivered.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) error {
		if n != nil {
			s.notifier = n
		}
		return nil
	}
}

// WithAppURL sets the base URL used to build reset links.
func WithAppURL(raw string) ServiceOption {
	return func(s *Service) error {
		raw = strings.TrimRight(strings.TrimSpace(raw), "/")
		if raw == "" {
			return nil
		}
		if _, err := url.Parse(raw); err != nil {
			return fmt.Errorf("auth: parse app url: %w", err)
		}
		s.appURL = raw
		return nil
	}
}

// NewService constructs Service. secret signs session tokens.
func NewService(store Store, secret string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth store is required")
	}
	svc := &Service{
		store:      store,
		notifier:   LogNotifier{},
		now:        time.Now,
		issuer:     defaultIssuer,
		sessionTTL: defaultSessionTTL,
		resetTTL:   defaultResetTTL,
		appURL:     "http://localhost:3000",
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	signer, err := NewSigner(secret, svc.issuer, svc.now)
	if err != nil {
		return nil, err
	}
	svc.signer = signer
	return svc, nil
}

// Signer exposes the token signer so other services can issue scoped grants.
func (s *Service) Signer() *Signer { return s.signer }

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases value and joins its alphanumeric runs with dashes.
func Slugify(value string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(value), "-"), "-")
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	return email, nil
}

func validateName(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if len([]rune(value)) < minNameLength {
		return "", fmt.Errorf("%w: %s must be at least %d characters", ErrInvalidInput, field, minNameLength)
	}
	return value, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}

// Signup registers a new organization with its default departments and the
// owner, who is a member of every one of them.
func (s *Service) Signup(ctx context.Context, in SignupInput) (Organization, User, error) {
	orgName, err := validateName("organization name", in.OrganizationName)
	if err != nil {
		return Organization{}, User{}, err
	}
	name, err := validateName("name", in.Name)
	if err != nil {
		return Organization{}, User{}, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Organization{}, User{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return Organization{}, User{}, err
	}
	slug := Slugify(orgName)
	if slug == "" {
		return Organization{}, User{}, fmt.Errorf("%w: organization name needs letters or digits", ErrInvalidInput)
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return Organization{}, User{}, fmt.Errorf("%w: email already in use", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return Organization{}, User{}, err
	}
	exists, err := s.store.OrganizationExists(ctx, orgName, slug)
	if err != nil {
		return Organization{}, User{}, err
	}
	if exists {
		return Organization{}, User{}, fmt.Errorf("%w: organization already exists", ErrConflict)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return Organization{}, User{}, err
	}
	now := s.now().UTC()
	org := Organization{ID: ids.New(), Name: orgName, Slug: slug, CreatedAt: now, UpdatedAt: now}
	reg := Registration{Organization: org}
	owner := User{
		ID:             ids.New(),
		OrganizationID: org.ID,
		Name:           name,
		Email:          email,
		Role:           rbac.RoleOwner,
		PasswordHash:   hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, dept := range DefaultDepartments {
		seed := DepartmentSeed{ID: ids.New(), Name: dept}
		reg.Departments = append(reg.Departments, seed)
		owner.DepartmentIDs = append(owner.DepartmentIDs, seed.ID)
	}
	reg.Owner = owner
	if err := s.store.Register(ctx, reg); err != nil {
		if errors.Is(err, ErrConflict) {
			return Organization{}, User{}, fmt.Errorf("%w: email or organization already exists", ErrConflict)
		}
		return Organization{}, User{}, err
	}
	return org, owner, nil
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, ErrUnauthorized
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrUnauthorized
	}
	token, exp, err := s.signer.IssueSession(user, s.sessionTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: user}, nil
}

// Authenticate verifies a session token and reloads the user so role and
// department changes apply to the next request.
func (s *Service) Authenticate(ctx context.Context, token string) (rbac.Caller, error) {
	claims, err := s.signer.ParseSession(token)
	if err != nil {
		return rbac.Caller{}, ErrInvalidToken
	}
	user, err := s.store.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return rbac.Caller{}, ErrInvalidToken
		}
		return rbac.Caller{}, err
	}
	if user.OrganizationID != claims.OrgID {
		return rbac.Caller{}, ErrInvalidToken
	}
	return user.Caller(), nil
}
