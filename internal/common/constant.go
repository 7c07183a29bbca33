package common

// HTTP header names and values shared by the server and its tests.
const (
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "
)

// RoleUser is the single authority granted to every authenticated identity.
const RoleUser = "ROLE_USER"
