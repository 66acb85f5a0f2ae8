package models

// Message roles stored in conversation memory.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// Chat is one conversation session.
type Chat struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Message is one turn in a conversation.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// DocumentMeta describes a document uploaded into a chat.
type DocumentMeta struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploaded_at"`
}

// ChatInfo bundles a chat with its messages and documents.
type ChatInfo struct {
	Chat
	Messages  []Message      `json:"messages"`
	Documents []DocumentMeta `json:"documents,omitempty"`
}
