package approval

import "sort"

// Role is a named authority in the approval policy
type Role string

const (
	RoleAuthor   Role = "author"
	RoleReviewer Role = "reviewer"
	RoleApprover Role = "approver"
	RolePoster   Role = "poster"
)

// Policy maps roles to the principals (user IDs) that hold them.
// The zero value is an empty policy.
type Policy struct {
	grants map[Role]map[string]struct{}
}

// NewPolicy builds a policy from a role -> principals table
func NewPolicy(grants map[Role][]string) *Policy {
	p := &Policy{}
	for role, principals := range grants {
		p.Grant(role, principals...)
	}
	return p
}

// Grant adds principals to role. Empty IDs are ignored.
func (p *Policy) Grant(role Role, principals ...string) {
	if p.grants == nil {
		p.grants = make(map[Role]map[string]struct{})
	}
	set, ok := p.grants[role]
	if !ok {
		set = make(map[string]struct{})
		p.grants[role] = set
	}
	for _, id := range principals {
		if id != "" {
			set[id] = struct{}{}
		}
	}
}

// Allows reports whether principal holds role
func (p *Policy) Allows(role Role, principal string) bool {
	if p == nil || principal == "" {
		return false
	}
	_, ok := p.grants[role][principal]
	return ok
}

// Principals returns the sorted holders of role
func (p *Policy) Principals(role Role) []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.grants[role]))
	for id := range p.grants[role] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// HasHolders reports whether anyone holds role
func (p *Policy) HasHolders(role Role) bool {
	return p != nil && len(p.grants[role]) > 0
}

// requiredRoles lists which roles may fire each trigger
var requiredRoles = map[Trigger][]Role{
	TriggerSubmit:       {RoleAuthor},
	TriggerResetToDraft: {RoleAuthor},
	TriggerStartReview:  {RoleReviewer},
	TriggerApprove:      {RoleApprover},
	TriggerReject:       {RoleApprover},
	TriggerPost:         {RolePoster},
	TriggerCancel:       {RoleAuthor, RoleApprover},
}

// RequiredRoles returns the roles any of which may fire trigger
func RequiredRoles(trigger Trigger) []Role {
	return append([]Role(nil), requiredRoles[trigger]...)
}
