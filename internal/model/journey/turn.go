package journey

import "time"

// Role identifies who produced a turn.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Turn persists one exchange of the transcript. Turns are append-only.
type Turn struct {
	ID        string            `json:"id"`
	SessionID string            `json:"sessionId"`
	UserID    string            `json:"userId"`
	Seq       int               `json:"seq"`
	Role      Role              `json:"role"`
	State     State             `json:"state"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
