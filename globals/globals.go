package globals

// Context keys
type ContextKey string

const (
	UserIDKey       ContextKey = "userId"
	RoleKey         ContextKey = "role"
	FacilityTypeKey ContextKey = "facilityType"
)

// Account roles carried in the JWT.
const (
	RoleDonor    = "donor"
	RoleFacility = "facility"
	RoleAdmin    = "admin"
)
