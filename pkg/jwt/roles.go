package jwt

// Role is the coarse access level carried in a token.
type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Permission names a single capability checked by route middleware.
type Permission string

const (
	PermissionChatSend         Permission = "chat:send"
	PermissionFAQRead          Permission = "faq:read"
	PermissionFAQWrite         Permission = "faq:write"
	PermissionEscalationManage Permission = "escalation:manage"
	PermissionUserManage       Permission = "user:manage"
)

var rolePermissions = map[Role][]Permission{
	RoleUser: {
		PermissionChatSend,
		PermissionFAQRead,
	},
	RoleStaff: {
		PermissionChatSend,
		PermissionFAQRead,
		PermissionFAQWrite,
		PermissionEscalationManage,
	},
	RoleAdmin: {
		PermissionChatSend,
		PermissionFAQRead,
		PermissionFAQWrite,
		PermissionEscalationManage,
		PermissionUserManage,
	},
}

var roleRank = map[Role]int{
	RoleUser:  1,
	RoleStaff: 2,
	RoleAdmin: 3,
}

// ParseRole returns the role named by s, or false when s is not a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants at least the access of other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other] && r.Valid()
}

// Permissions returns the permissions granted to r.
func (r Role) Permissions() []Permission {
	return rolePermissions[r]
}

// HasRole reports whether the claims satisfy role. Higher roles satisfy lower ones.
func (c *JWTClaims) HasRole(role Role) bool {
	return c.Role.AtLeast(role)
}

// HasPermission reports whether the claims' role grants p.
func (c *JWTClaims) HasPermission(p Permission) bool {
	for _, granted := range rolePermissions[c.Role] {
		if granted == p {
			return true
		}
	}
	return false
}
