package commission

import "regexp"

// Role names a commission beneficiary slot. The set is open: modules may add
// their own slots next to the well-known ones below.
type Role string

const (
	RoleBroker   Role = "broker"
	RoleReferrer Role = "referrer"
	RoleCashback Role = "cashback"
	RoleAgent1   Role = "agent1"
	RoleAgent2   Role = "agent2"
	RoleManager  Role = "manager"
	RoleDirector Role = "director"
	RoleOther    Role = "other"
)

var rolePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// KnownRoles lists the slots shipped with the brokerage modules
func KnownRoles() []Role {
	return []Role{RoleBroker, RoleReferrer, RoleCashback, RoleAgent1, RoleAgent2, RoleManager, RoleDirector, RoleOther}
}

// IsValid accepts any lower-case identifier
func (r Role) IsValid() bool {
	return rolePattern.MatchString(string(r))
}

func (r Role) String() string {
	return string(r)
}
