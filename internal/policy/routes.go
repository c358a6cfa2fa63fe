package policy

import "strings"

// Route is a screen of the client.
type Route string

const (
	RouteHome                 Route = "/"
	RouteLogin                Route = "/login"
	RouteRegister             Route = "/register"
	RouteCompleteRegistration Route = "/complete-registration"
	RouteDashboard            Route = "/dashboard"
	RouteModels               Route = "/models"
	RouteCredits              Route = "/credits"
	RouteChat                 Route = "/chat"
	RouteNotFound             Route = "/404"
)

var knownRoutes = []Route{
	RouteHome, RouteLogin, RouteRegister, RouteCompleteRegistration,
	RouteDashboard, RouteModels, RouteCredits, RouteChat,
}

// ParseRoute maps a path such as "/chat/abc" to its route and the trailing
// parameter ("abc"). Unknown paths map to RouteNotFound.
func ParseRoute(path string) (Route, string) {
	if path == "" {
		path = "/"
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	for _, r := range knownRoutes {
		if path == string(r) {
			return r, ""
		}
	}
	if rest, ok := strings.CutPrefix(path, string(RouteChat)+"/"); ok && rest != "" {
		return RouteChat, rest
	}
	return RouteNotFound, ""
}
