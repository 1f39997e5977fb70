package domain

// Capabilities required by mutating catalog operations.
const (
	CapabilityDomainExpert = "DC_DOMAIN_EXPERT"
	CapabilityAdmin        = "DC_ADMIN"
)

type ctxKeyType string

// UserCtxKey carries the authenticated User through a request context.
const UserCtxKey ctxKeyType = "activeUser"

// User is the identity and capability set attached to a request. It is an
// explicit value passed into each orchestrator call, never ambient state.
type User struct {
	Username string   `json:"username"`
	FullName string   `json:"fullname"`
	Email    string   `json:"email"`
	Subject  string   `json:"subject"`
	Roles    []string `json:"roles"`
}

// Can reports whether the user holds the given capability.
func (u User) Can(capability string) bool {
	for _, role := range u.Roles {
		if role == capability {
			return true
		}
	}
	return false
}

// Anonymous is the identity used when authentication is disabled. It is
// granted both catalog capabilities so a local deployment works unattended.
func Anonymous() User {
	return User{
		Username: "anonymous",
		FullName: "anonymous",
		Email:    "anonymous@anonymous.com",
		Subject:  "anonymousId",
		Roles:    []string{CapabilityDomainExpert, CapabilityAdmin},
	}
}
