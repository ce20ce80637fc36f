package rbac

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahel-erp/sahel-erp/internal/shared"
)

// Capability names an action a role or user may perform.
type Capability string

// Wildcard grants every capability.
const Wildcard Capability = shared.PermAll

// Set is a parsed permission list. The zero value grants nothing.
type Set struct {
	wildcard bool
	caps     map[Capability]struct{}
}

// ParseSet reads the stored comma-separated form. Only the exact stored value
// "all" is the wildcard; anything else, padded "all" included, is a list whose
// entries are trimmed. Unknown entries are kept so that reads never fail.
func ParseSet(raw string) Set {
	if raw == string(Wildcard) {
		return Set{wildcard: true}
	}
	if strings.TrimSpace(raw) == "" {
		return Set{}
	}
	s := Set{caps: make(map[Capability]struct{})}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		s.caps[Capability(part)] = struct{}{}
	}
	return s
}

// NewSet builds a validated set from individual capability names.
func NewSet(names ...string) (Set, error) {
	s := Set{caps: make(map[Capability]struct{}, len(names))}
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		if !IsKnown(Capability(name)) {
			return Set{}, shared.Validation(fmt.Sprintf("Permission inconnue: %q", name))
		}
		s.caps[Capability(name)] = struct{}{}
	}
	if _, ok := s.caps[Wildcard]; ok {
		if len(s.caps) > 1 {
			return Set{}, shared.Validation(`La permission "all" ne peut pas être combinée avec d'autres.`)
		}
		return Set{wildcard: true}, nil
	}
	return s, nil
}

// ValidateSet parses raw strictly, as required before writing it.
func ValidateSet(raw string) (Set, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Set{}, nil
	}
	return NewSet(strings.Split(raw, ",")...)
}

// IsWildcard reports whether the set grants everything.
func (s Set) IsWildcard() bool {
	return s.wildcard
}

// Contains reports literal membership of c.
func (s Set) Contains(c Capability) bool {
	if s.wildcard {
		return c == Wildcard
	}
	_, ok := s.caps[c]
	return ok
}

// Allows reports whether the set grants c.
func (s Set) Allows(c Capability) bool {
	return s.wildcard || s.Contains(c)
}

// Empty reports whether the set grants nothing.
func (s Set) Empty() bool {
	return !s.wildcard && len(s.caps) == 0
}

// Names returns the sorted capability names.
func (s Set) Names() []string {
	if s.wildcard {
		return []string{string(Wildcard)}
	}
	names := make([]string, 0, len(s.caps))
	for c := range s.caps {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return names
}

// String returns the canonical stored form.
func (s Set) String() string {
	return strings.Join(s.Names(), ",")
}

// IsKnown reports whether c belongs to the capability catalog.
func IsKnown(c Capability) bool {
	_, ok := shared.ScopeDescriptions[string(c)]
	return ok
}

// RoleGrant is the part of a role the resolver needs.
type RoleGrant struct {
	ID          int64
	Name        string
	Permissions Set
}

// Subject is a user as seen by the resolver.
type Subject struct {
	UserID      int64
	Active      bool
	Permissions Set
	Role        *RoleGrant
}

// HasPermission decides allow/deny: user wildcard, user membership, then the
// role's wildcard or membership. A nil subject is denied.
func HasPermission(subject *Subject, c Capability) bool {
	if subject == nil {
		return false
	}
	if subject.Permissions.Allows(c) {
		return true
	}
	if subject.Role == nil {
		return false
	}
	return subject.Role.Permissions.Allows(c)
}

// IsAdmin reports whether the subject holds the wildcard.
func IsAdmin(subject *Subject) bool {
	return HasPermission(subject, Wildcard)
}

// Permission is one catalog entry.
type Permission struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog lists every grantable capability.
func Catalog() []Permission {
	scopes := shared.CoreScopes()
	perms := make([]Permission, 0, len(scopes))
	for _, name := range scopes {
		perms = append(perms, Permission{Name: name, Description: shared.ScopeDescriptions[name]})
	}
	return perms
}
