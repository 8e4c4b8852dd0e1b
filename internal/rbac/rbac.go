package rbac

type Role string
type Action string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionExport Action = "export"
	ActionAdmin  Action = "admin"
)

// Can evaluates workspace-level rights. Project ownership is checked
// separately: users only see their own projects, admins see everything.
func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleUser:
		return action == ActionRead || action == ActionWrite || action == ActionExport
	default:
		return false
	}
}

// CanAccessProject reports whether the given user may touch a project owned
// by ownerID.
func CanAccessProject(role Role, userID, ownerID string) bool {
	if role == RoleAdmin {
		return true
	}
	return userID == ownerID
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleUser, RoleAdmin:
		return Role(role)
	default:
		return RoleUser
	}
}
