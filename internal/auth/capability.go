package auth

// Role is the authorization level attached to a user account.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleMember    Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLibrarian, RoleMember:
		return true
	}
	return false
}

// Operation names a protected action. Handlers declare the operation they
// perform; the capability table decides who may perform it.
type Operation string

const (
	OpCatalogRead    Operation = "catalog.read"
	OpCatalogWrite   Operation = "catalog.write"
	OpBorrowingRead  Operation = "borrowing.read"
	OpBorrowingWrite Operation = "borrowing.write"
	OpListMembers    Operation = "accounts.list_members"
	OpListLibrarians Operation = "accounts.list_librarians"
	OpManageUsers    Operation = "accounts.manage"
)

// Operations lists every protected operation, in no particular order.
var Operations = []Operation{
	OpCatalogRead,
	OpCatalogWrite,
	OpBorrowingRead,
	OpBorrowingWrite,
	OpListMembers,
	OpListLibrarians,
	OpManageUsers,
}

// capabilities is the single data-driven permission table. An operation
// missing from a role's set is denied.
var capabilities = map[Role]map[Operation]bool{
	RoleAdmin: {
		OpCatalogRead:    true,
		OpCatalogWrite:   true,
		OpBorrowingRead:  true,
		OpBorrowingWrite: true,
		OpListMembers:    true,
		OpListLibrarians: true,
		OpManageUsers:    true,
	},
	RoleLibrarian: {
		OpCatalogRead:    true,
		OpCatalogWrite:   true,
		OpBorrowingRead:  true,
		OpBorrowingWrite: true,
		OpListMembers:    true,
	},
	RoleMember: {
		OpCatalogRead:   true,
		OpBorrowingRead: true,
	},
}

// Allowed reports whether the role may perform the operation. Borrowing
// reads allowed here are further scoped to the caller's own records by the
// borrowing handler; the table only answers role questions.
func Allowed(role Role, op Operation) bool {
	return capabilities[role][op]
}
