package domain

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleStaff    UserRole = "staff"
	RoleManager  UserRole = "manager"
	RoleAdmin    UserRole = "admin"
)

// Level orders roles for "at least staff" style checks. Unknown roles rank lowest.
func (r UserRole) Level() int {
	switch r {
	case RoleAdmin:
		return 4
	case RoleManager:
		return 3
	case RoleStaff:
		return 2
	case RoleCustomer:
		return 1
	default:
		return 0
	}
}

// Actor is whoever drives an operation: a logged-in user, a staff member or a scheduled job.
type Actor struct {
	UserID int64    `json:"user_id"`
	Role   UserRole `json:"role"`
}

// SystemActor is used by scheduled jobs; it carries staff rights but no user id.
var SystemActor = Actor{Role: RoleStaff}

func (a Actor) IsStaff() bool {
	return a.Role.Level() >= RoleStaff.Level()
}

// UserIDPtr returns nil for anonymous/system actors so it can be stored in nullable columns.
func (a Actor) UserIDPtr() *int64 {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}
