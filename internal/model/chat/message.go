package chat

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one immutable turn in a session. Timestamp is stamped at append time.
type Message struct {
	Role      Role     `json:"role" yaml:"role"`
	Content   string   `json:"content" yaml:"content"`
	Sources   []string `json:"sources,omitempty" yaml:"sources,omitempty"`
	Timestamp int64    `json:"ts,omitempty" yaml:"ts,omitempty"`
}
