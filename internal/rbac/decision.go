package rbac

// Action is an operation on a persisted resource.
type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Outcome tells callers how to report a decision.
type Outcome int

const (
	Allowed Outcome = iota
	// NotFound hides the resource: it is in another tenant or outside the caller's departments.
	NotFound
	// Forbidden means the caller can see the resource but lacks the role for the action.
	Forbidden
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Decide evaluates action on res for c. Unknown actions are forbidden.
func Decide(c Caller, action Action, res Resource) Outcome {
	if !CanAccessResource(c, res) {
		return NotFound
	}
	var ok bool
	switch action {
	case ActionView:
		ok = true
	case ActionEdit:
		ok = CanEditResource(c, res)
	case ActionDelete:
		ok = CanDeleteResource(c, res)
	}
	if !ok {
		return Forbidden
	}
	return Allowed
}
