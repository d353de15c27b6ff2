package flows

import "github.com/vartikaresort/funpark-backend/internal/models"

// Routes the flows redirect to
const (
	RouteHome           = "/"
	RouteLogin          = "/login"
	RouteUserDashboard  = "/user-dashboard"
	RouteAdminDashboard = "/admin-dashboard"
)

// Access is the outcome of a route check
type Access struct {
	Allowed  bool
	Redirect string
}

// Guard decides route access from the session
type Guard struct {
	session *Session
}

// NewGuard creates a guard over session
func NewGuard(session *Session) *Guard {
	return &Guard{session: session}
}

// Check allows the route when a token is present and, if roles are given,
// the stored user has one of them
func (g *Guard) Check(roles ...models.Role) Access {
	if !g.session.IsAuthenticated() {
		return Access{Redirect: RouteLogin}
	}
	if len(roles) == 0 {
		return Access{Allowed: true}
	}

	role := g.session.Role()
	for _, r := range roles {
		if r == role {
			return Access{Allowed: true}
		}
	}
	return Access{Redirect: RouteHome}
}

// LandingRoute is where a user goes after logging in
func LandingRoute(role models.Role) string {
	if role.IsAdmin() {
		return RouteAdminDashboard
	}
	return RouteUserDashboard
}
