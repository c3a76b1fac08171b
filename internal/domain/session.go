package domain

// Status is the authentication status of a session, resolved fresh on every
// request from the persisted box.
type Status string

const (
	// StatusUnknown means the box could not be consulted; callers must treat
	// the session as undetermined, never as logged out.
	StatusUnknown Status = "unknown"
	// StatusAuthenticated means both credential and identity were restored.
	StatusAuthenticated Status = "authenticated"
	// StatusAnonymous means the box held no usable session.
	StatusAnonymous Status = "anonymous"
)

// Session is the resolved per-request view of a session box.
// Invariant: Status == StatusAuthenticated exactly when Credential != "" and
// Identity != nil.
type Session struct {
	ID         string
	Credential string
	Identity   *Identity
	Status     Status
}

// Authenticated reports whether the session carries a restored login.
func (s *Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Role returns the session's role, RoleUnknown when not authenticated.
func (s *Session) Role() Role {
	if s.Identity == nil {
		return RoleUnknown
	}
	return s.Identity.Role
}

// Anonymous returns a resolved anonymous session for the given id.
func Anonymous(id string) *Session {
	return &Session{ID: id, Status: StatusAnonymous}
}

// Undetermined returns a session whose status could not be resolved.
func Undetermined(id string) *Session {
	return &Session{ID: id, Status: StatusUnknown}
}
