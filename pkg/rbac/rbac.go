package rbac

const (
	PermissionReadMail   = "mail:read"
	PermissionSendMail   = "mail:send"
	PermissionManageSelf = "profile:update"

	PermissionViewAdmin   = "admin:view"
	PermissionManageUsers = "admin:users"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionReadMail,
		PermissionSendMail,
		PermissionManageSelf,
	},
	RoleAdmin: {
		PermissionReadMail,
		PermissionSendMail,
		PermissionManageSelf,
		PermissionViewAdmin,
		PermissionManageUsers,
	},
}

// IsValidRole reports whether role is known.
func IsValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission reports whether any of roles grants permission.
func HasPermission(roles []string, permission string) bool {
	for _, role := range roles {
		for _, p := range rolePermissions[role] {
			if p == permission {
				return true
			}
		}
	}
	return false
}

// CheckPermission returns a *PermissionDeniedError when roles lack permission.
func CheckPermission(userID int, roles []string, permission string) error {
	if !HasPermission(roles, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError reports a failed permission check.
type PermissionDeniedError struct {
	UserID     int
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
