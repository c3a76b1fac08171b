package guard

import (
	"strings"

	"github.com/anasy333/krishisat-gateway/internal/domain"
)

// Decision is the outcome of evaluating a session against a guarded route.
type Decision int

const (
	// Render lets the navigation through.
	Render Decision = iota
	// Loading means the session status is still undetermined; the client
	// must wait, never be redirected.
	Loading
	// RedirectLogin sends an anonymous visitor to the login page.
	RedirectLogin
	// RedirectDefault sends an authenticated but non-permitted visitor to
	// the default landing page.
	RedirectDefault
)

// String implements fmt.Stringer for log output.
func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case Loading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDefault:
		return "redirect_default"
	default:
		return "invalid"
	}
}

// Rule guards one route. An empty Roles set admits any authenticated user.
type Rule struct {
	Method string
	// Path is an exact path, or a prefix when it ends in "/*".
	Path  string
	Roles []domain.Role
}

// Match reports whether the rule covers the given request.
func (r *Rule) Match(method, path string) bool {
	if r.Method != method {
		return false
	}
	if strings.HasSuffix(r.Path, "/*") {
		return strings.HasPrefix(path, strings.TrimSuffix(r.Path, "*"))
	}
	return r.Path == path
}

// Permits reports whether the role satisfies the rule's role set.
func (r *Rule) Permits(role domain.Role) bool {
	if len(r.Roles) == 0 {
		return true
	}
	for _, allowed := range r.Roles {
		if role == allowed {
			return true
		}
	}
	return false
}

// Table is the static set of guarded routes. Routes not in the table are
// public and bypass the guard entirely.
type Table []Rule

// Lookup returns the first matching rule, nil when the route is public.
func (t Table) Lookup(method, path string) *Rule {
	for i := range t {
		if t[i].Match(method, path) {
			return &t[i]
		}
	}
	return nil
}

// Evaluate applies the guard contract in order:
//  1. undetermined session  -> Loading
//  2. anonymous session     -> RedirectLogin
//  3. permitted role (or empty role set) -> Render
//  4. otherwise             -> RedirectDefault
func Evaluate(s *domain.Session, rule *Rule) Decision {
	switch s.Status {
	case domain.StatusUnknown:
		return Loading
	case domain.StatusAnonymous:
		return RedirectLogin
	}
	if rule.Permits(s.Role()) {
		return Render
	}
	return RedirectDefault
}
