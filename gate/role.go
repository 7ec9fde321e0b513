package gate

// Role is either GeneralManager or Scoped.
type Role interface {
	allows(Permission) bool
	Name() string
}

// GeneralManager holds every permission regardless of any stored list.
type GeneralManager struct{}

func (GeneralManager) allows(Permission) bool { return true }

// Name returns the role identifier.
func (GeneralManager) Name() string { return "general_manager" }

// Scoped holds an explicit permission set.
type Scoped struct {
	Role        string
	Permissions []Permission
}

func (s Scoped) allows(requested Permission) bool {
	for _, p := range s.Permissions {
		if p.Matches(requested) {
			return true
		}
	}
	return false
}

// Name returns the role identifier.
func (s Scoped) Name() string { return s.Role }

// Subject is the authenticated employee as seen by the gate.
type Subject struct {
	ID   string
	Name string
	Role Role
}

// Can reports whether s holds capability. A nil subject holds nothing.
func Can(s *Subject, capability Permission) bool {
	if s == nil || s.Role == nil {
		return false
	}
	return s.Role.allows(capability)
}

// IsGeneralManager reports whether s is the general manager.
func IsGeneralManager(s *Subject) bool {
	if s == nil {
		return false
	}
	_, ok := s.Role.(GeneralManager)
	return ok
}
