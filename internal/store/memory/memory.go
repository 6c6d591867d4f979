// Package memory implements every store interface in process memory. It
// backs tests and the STORE=memory development mode.
package memory

import (
	"sync"
	"time"

	"sopline.io/internal/auth"
	"sopline.io/internal/flow"
	"sopline.io/internal/library"
	"sopline.io/internal/share"
)

var (
	_ auth.Store    = (*Store)(nil)
	_ library.Store = (*Store)(nil)
	_ share.Store   = (*Store)(nil)
	_ flow.Store    = (*Store)(nil)
)

// Store holds all records behind one lock. Values are copied in and out.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	orgs     map[string]auth.Organization
	users    map[string]auth.User
	resets   map[string]auth.PasswordReset
	depts    map[string]library.Department
	sections map[string]library.Section
	sops     map[string]library.SOP
	steps    map[string]library.Step
	comments map[string]library.Comment
	links    map[string]share.Link
	boards   map[string]flow.Board
}

// New returns an empty store. now defaults to time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:      now,
		orgs:     make(map[string]auth.Organization),
		users:    make(map[string]auth.User),
		resets:   make(map[string]auth.PasswordReset),
		depts:    make(map[string]library.Department),
		sections: make(map[string]library.Section),
		sops:     make(map[string]library.SOP),
		steps:    make(map[string]library.Step),
		comments: make(map[string]library.Comment),
		links:    make(map[string]share.Link),
		boards:   make(map[string]flow.Board),
	}
}

func (s *Store) stamp() time.Time { return s.now().UTC() }
