package share

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sopline.io/internal/auth"
	"sopline.io/internal/ids"
	"sopline.io/internal/library"
	"sopline.io/internal/obs"
	"sopline.io/internal/rbac"
)

const (
	// tokenBytes yields 36 hex characters.
	tokenBytes        = 18
	defaultGrantTTL   = 30 * 24 * time.Hour
	minPasswordLength = 4
	maxPasswordLength = 72
)

// Service manages links for editors and resolves them for anonymous viewers.
type Service struct {
	links    Store
	lib      Library
	signer   *auth.Signer
	grantTTL time.Duration
	now      func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithGrantTTL sets the lifetime of unlock grants.
func WithGrantTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.grantTTL = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(links Store, lib Library, signer *auth.Signer, opts ...Option) (*Service, error) {
	if links == nil || lib == nil {
		return nil, errors.New("share stores are required")
	}
	if signer == nil {
		return nil, errors.New("share signer is required")
	}
	s := &Service{links: links, lib: lib, signer: signer, grantTTL: defaultGrantTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// target resolves the department resource of a link target inside the actor's org.
func (s *Service) target(ctx context.Context, actor rbac.Caller, kind Kind, id string) (rbac.Resource, error) {
	id = strings.TrimSpace(id)
	var (
		res rbac.Resource
		err error
	)
	switch kind {
	case KindSOP:
		var sop library.SOP
		if sop, err = s.lib.GetSOP(ctx, actor.OrgID, id); err == nil {
			res = sop.Resource()
		}
	case KindSection:
		var sec library.Section
		if sec, err = s.lib.GetSection(ctx, actor.OrgID, id); err == nil {
			res = sec.Resource()
		}
	default:
		return rbac.Resource{}, fmt.Errorf("%w: unknown share kind %q", ErrInvalidInput, kind)
	}
	if errors.Is(err, library.ErrNotFound) {
		return rbac.Resource{}, fmt.Errorf("%w: %s", ErrNotFound, kind)
	}
	if err != nil {
		return rbac.Resource{}, err
	}
	out := rbac.Decide(actor, rbac.ActionEdit, res)
	obs.RecordDecision("share", out.String())
	switch out {
	case rbac.Allowed:
		return res, nil
	case rbac.NotFound:
		return rbac.Resource{}, fmt.Errorf("%w: %s", ErrNotFound, kind)
	default:
		return rbac.Resource{}, ErrForbidden
	}
}

// Get returns the link of a target.
func (s *Service) Get(ctx context.Context, actor rbac.Caller, kind Kind, targetID string) (Link, error) {
	if _, err := s.target(ctx, actor, kind, targetID); err != nil {
		return Link{}, err
	}
	return s.links.GetLink(ctx, kind, strings.TrimSpace(targetID))
}

// Ensure returns the link of a target, creating an enabled one when missing.
// created reports whether a new link was stored.
func (s *Service) Ensure(ctx context.Context, actor rbac.Caller, kind Kind, targetID string) (link Link, created bool, err error) {
	res, err := s.target(ctx, actor, kind, targetID)
	if err != nil {
		return Link{}, false, err
	}
	targetID = strings.TrimSpace(targetID)
	existing, err := s.links.GetLink(ctx, kind, targetID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Link{}, false, err
	}
	token, err := ids.Token(tokenBytes)
	if err != nil {
		return Link{}, false, fmt.Errorf("generate share token: %w", err)
	}
	now := s.now().UTC()
	link, err = s.links.CreateLink(ctx, Link{
		ID:             ids.New(),
		OrganizationID: res.OrgID,
		Kind:           kind,
		TargetID:       targetID,
		Token:          token,
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if errors.Is(err, ErrConflict) {
		// Lost a creation race; the winner's link is the link.
		existing, err := s.links.GetLink(ctx, kind, targetID)
		return existing, false, err
	}
	if err != nil {
		return Link{}, false, err
	}
	return link, true, nil
}

// Update toggles a link and sets or clears its password.
func (s *Service) Update(ctx context.Context, actor rbac.Caller, kind Kind, targetID string, upd Update) (Link, error) {
	if _, err := s.target(ctx, actor, kind, targetID); err != nil {
		return Link{}, err
	}
	link, err := s.links.GetLink(ctx, kind, strings.TrimSpace(targetID))
	if err != nil {
		return Link{}, err
	}
	enabled, hash := link.Enabled, link.PasswordHash
	if upd.Enabled != nil {
		enabled = *upd.Enabled
	}
	if upd.Password != nil {
		switch pw := *upd.Password; {
		case pw == "":
			hash = ""
		case len(pw) < minPasswordLength || len(pw) > maxPasswordLength:
			return Link{}, fmt.Errorf("%w: password must be %d to %d characters", ErrInvalidInput, minPasswordLength, maxPasswordLength)
		default:
			if hash, err = auth.HashPassword(pw); err != nil {
				return Link{}, fmt.Errorf("hash share password: %w", err)
			}
		}
	}
	return s.links.UpdateLink(ctx, link.ID, enabled, hash)
}

// Rotate replaces the token of a link. Old URLs and grants stop working.
func (s *Service) Rotate(ctx context.Context, actor rbac.Caller, kind Kind, targetID string) (Link, error) {
	if _, err := s.target(ctx, actor, kind, targetID); err != nil {
		return Link{}, err
	}
	link, err := s.links.GetLink(ctx, kind, strings.TrimSpace(targetID))
	if err != nil {
		return Link{}, err
	}
	token, err := ids.Token(tokenBytes)
	if err != nil {
		return Link{}, fmt.Errorf("generate share token: %w", err)
	}
	return s.links.SetLinkToken(ctx, link.ID, token)
}

// resolve finds a public link whose target is currently viewable.
func (s *Service) resolve(ctx context.Context, kind Kind, token string) (Link, error) {
	token = strings.TrimSpace(token)
	if !kind.Valid() || token == "" {
		return Link{}, ErrNotFound
	}
	link, err := s.links.GetLinkByToken(ctx, kind, token)
	if err != nil {
		return Link{}, err
	}
	if !link.Enabled {
		return Link{}, ErrNotFound
	}
	if kind == KindSOP {
		sop, err := s.lib.GetSOP(ctx, link.OrganizationID, link.TargetID)
		if err != nil || !sop.Published {
			return Link{}, ErrNotFound
		}
	}
	return link, nil
}

type grantClaims struct {
	Kind Kind `json:"knd"`
	// Fingerprint binds the grant to the password that was unlocked.
	Fingerprint string `json:"pwf"`
	jwt.RegisteredClaims
}

func fingerprint(passwordHash string) string {
	return auth.HashToken(passwordHash)[:16]
}

// Unlock checks password against a link. Links without a password unlock
// without a grant token.
func (s *Service) Unlock(ctx context.Context, kind Kind, token, password string) (Grant, error) {
	link, err := s.resolve(ctx, kind, token)
	if err != nil {
		return Grant{}, err
	}
	if !link.HasPassword() {
		return Grant{}, nil
	}
	if err := auth.VerifyPassword(link.PasswordHash, password); err != nil {
		return Grant{}, ErrInvalidPassword
	}
	claims := grantClaims{
		Kind:             kind,
		Fingerprint:      fingerprint(link.PasswordHash),
		RegisteredClaims: s.signer.Registered(link.ID, link.Token, s.grantTTL),
	}
	signed, err := s.signer.Sign(claims)
	if err != nil {
		return Grant{}, err
	}
	return Grant{Cookie: kind.CookieName(link.Token), Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *Service) checkGrant(link Link, grant string) error {
	if !link.HasPassword() {
		return nil
	}
	claims := &grantClaims{}
	if err := s.signer.Parse(grant, link.Token, claims); err != nil {
		return ErrLocked
	}
	if claims.Subject != link.ID || claims.Kind != link.Kind || claims.Fingerprint != fingerprint(link.PasswordHash) {
		return ErrLocked
	}
	return nil
}

// ViewSOP resolves a shared SOP with its steps.
func (s *Service) ViewSOP(ctx context.Context, token, grant string) (SOPView, error) {
	link, err := s.resolve(ctx, KindSOP, token)
	if err != nil {
		return SOPView{}, err
	}
	if err := s.checkGrant(link, grant); err != nil {
		return SOPView{}, err
	}
	sop, err := s.lib.GetSOP(ctx, link.OrganizationID, link.TargetID)
	if err != nil {
		return SOPView{}, err
	}
	steps, err := s.lib.ListSteps(ctx, sop.ID)
	if err != nil {
		return SOPView{}, err
	}
	return SOPView{SOP: sop, Steps: steps}, nil
}

// ViewSection resolves a shared section with its published SOPs.
func (s *Service) ViewSection(ctx context.Context, token, grant string) (SectionView, error) {
	link, err := s.resolve(ctx, KindSection, token)
	if err != nil {
		return SectionView{}, err
	}
	if err := s.checkGrant(link, grant); err != nil {
		return SectionView{}, err
	}
	sec, err := s.lib.GetSection(ctx, link.OrganizationID, link.TargetID)
	if errors.Is(err, library.ErrNotFound) {
		return SectionView{}, ErrNotFound
	}
	if err != nil {
		return SectionView{}, err
	}
	dept, err := s.lib.GetDepartment(ctx, sec.OrganizationID, sec.DepartmentID)
	if err != nil {
		return SectionView{}, err
	}
	sops, err := s.lib.ListSOPs(ctx, library.SOPQuery{
		Scope:         rbac.Scope{OrgID: sec.OrganizationID, DepartmentIDs: []string{sec.DepartmentID}},
		Bucket:        &library.Bucket{DepartmentID: sec.DepartmentID, SectionID: sec.ID},
		PublishedOnly: true,
	})
	if err != nil {
		return SectionView{}, err
	}
	view := SectionView{Section: sec, DepartmentName: dept.Name, SOPs: make([]SharedSOP, 0, len(sops))}
	for _, sop := range sops {
		item := SharedSOP{SOP: sop}
		if l, err := s.links.GetLink(ctx, KindSOP, sop.ID); err == nil && l.Enabled {
			item.ShareToken = l.Token
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return SectionView{}, err
		}
		view.SOPs = append(view.SOPs, item)
	}
	return view, nil
}
