package layout

// Role is the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleUnknown   Role = "unknown"
)

// ParseRole maps a page-provided role value onto a Role. Anything that is
// not a user or assistant marker is unknown.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleUser:
		return RoleUser
	case RoleAssistant:
		return RoleAssistant
	default:
		return RoleUnknown
	}
}

// Label is the capitalized role name used in exported documents.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return "Unknown"
	}
}

// Badge is the one-letter marker shown next to an outline entry.
func (r Role) Badge() string {
	switch r {
	case RoleUser:
		return "U"
	case RoleAssistant:
		return "A"
	default:
		return "?"
	}
}
