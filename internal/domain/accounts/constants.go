package accounts

const (
	RoleClient = "CLIENT"
	RoleAgent  = "AGENT"
	RoleAdmin  = "ADMIN"
)

// DeletionGraceDays is how long a scheduled account survives before the
// purge pass erases it.
const DeletionGraceDays = 30

const (
	DeletionReasonUserRequested  = "Account deletion requested by the user"
	DeletionReasonAdminRequested = "Account deletion requested by an administrator"
)

func ValidRole(role string) bool {
	switch role {
	case RoleClient, RoleAgent, RoleAdmin:
		return true
	}
	return false
}
