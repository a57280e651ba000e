package domain

// Identity is the authenticated caller attached to a single request.
type Identity struct {
	AccountID string
	Role      Role
	Active    bool
}
