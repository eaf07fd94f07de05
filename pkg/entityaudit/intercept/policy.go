package intercept

import (
	"fmt"
	"sort"
	"sync"

	"auditkit/pkg/platform/sentinel"
)

// ActionPolicy describes an explicitly labeled business action.
type ActionPolicy struct {
	// Action is the event label. An empty label disables the explicit event.
	Action string
	// DisableDefaultEvents suppresses lifecycle events for the duration of
	// the action.
	DisableDefaultEvents bool
}

// NewActionPolicy returns a policy for action that suppresses lifecycle events.
func NewActionPolicy(action string) ActionPolicy {
	return ActionPolicy{Action: action, DisableDefaultEvents: true}
}

// KeepDefaultEvents returns a copy of p that lets lifecycle events fire.
func (p ActionPolicy) KeepDefaultEvents() ActionPolicy {
	p.DisableDefaultEvents = false
	return p
}

// Role tells how an operation is intercepted.
type Role int

const (
	RoleNone Role = iota
	RoleAction
	RoleSave
	RoleDelete
)

func (r Role) String() string {
	switch r {
	case RoleAction:
		return "action"
	case RoleSave:
		return "save"
	case RoleDelete:
		return "delete"
	default:
		return "none"
	}
}

// Policy is the audit policy bound to one operation name.
type Policy struct {
	Role   Role
	Action ActionPolicy
}

// ExplicitAction binds an operation to an explicit action policy.
func ExplicitAction(p ActionPolicy) Policy {
	return Policy{Role: RoleAction, Action: p}
}

// Lifecycle binds an operation to the save or delete lifecycle role.
func Lifecycle(role Role) Policy {
	return Policy{Role: role}
}

// Policies maps operation names to audit policies. It is populated at
// composition time and read on every Invoke.
type Policies struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

func NewPolicies() *Policies {
	return &Policies{policies: make(map[string]Policy)}
}

// Register binds name to p. Binding a name twice is an error.
func (ps *Policies) Register(name string, p Policy) error {
	if name == "" {
		return fmt.Errorf("register policy: empty operation name: %w", sentinel.ErrInvalidState)
	}
	if p.Role == RoleNone {
		return fmt.Errorf("register policy %q: no role: %w", name, sentinel.ErrInvalidState)
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if _, exists := ps.policies[name]; exists {
		return fmt.Errorf("register policy %q: already registered: %w", name, sentinel.ErrInvalidState)
	}
	ps.policies[name] = p
	return nil
}

// MustRegister is like Register but panics on error.
func (ps *Policies) MustRegister(name string, p Policy) {
	if err := ps.Register(name, p); err != nil {
		panic(err)
	}
}

// Lookup returns the policy bound to name.
func (ps *Policies) Lookup(name string) (Policy, bool) {
	if ps == nil {
		return Policy{}, false
	}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.policies[name]
	return p, ok
}

// Names returns the registered operation names in sorted order.
func (ps *Policies) Names() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	names := make([]string, 0, len(ps.policies))
	for name := range ps.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
