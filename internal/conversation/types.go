package conversation

import (
	"context"

	"github.com/MikeSquared-Agency/sherpa/internal/gateway"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Messages are never edited once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State is a snapshot of a conversation as a view should render it.
type State struct {
	Messages      []Message `json:"messages"`
	PendingInput  string    `json:"pendingInput"`
	Hypotheses    []string  `json:"hypotheses"`
	FeedbackDraft string    `json:"feedbackDraft"`
	IsLoading     bool      `json:"isLoading"`
}

func (s State) clone() State {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Hypotheses = append([]string(nil), s.Hypotheses...)
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	if out.Hypotheses == nil {
		out.Hypotheses = []string{}
	}
	return out
}

type NoticeLevel string

const (
	NoticeValidation NoticeLevel = "validation"
	NoticeSuccess    NoticeLevel = "success"
	NoticeError      NoticeLevel = "error"
)

const (
	textFeedbackRequired = "Please provide feedback before submitting."
	textFeedbackSent     = "Feedback submitted successfully!"
	textFeedbackFailed   = "Failed to submit feedback. Please try again."

	feedbackPrefix = "Feedback: "
)

// Notice is a user-facing message a view should show and make the user acknowledge.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}

type EventKind string

const (
	// EventState carries the state after any change.
	EventState EventKind = "state"
	// EventMessage is emitted once per appended message, before the matching EventState.
	EventMessage EventKind = "message"
	// EventNotice carries a notice for the user.
	EventNotice EventKind = "notice"
)

// Event is delivered to subscribers. Version is the state version the event
// was produced at; it grows by one with every state change. The State is
// shared between subscribers and must not be modified.
type Event struct {
	Kind    EventKind `json:"kind"`
	Version uint64    `json:"version"`
	State   State     `json:"state"`
	Message *Message  `json:"message,omitempty"`
	Notice  *Notice   `json:"notice,omitempty"`
}

// Gateway is the remote hypothesis service as seen by the controller.
type Gateway interface {
	Ask(ctx context.Context, prompt string) (*gateway.Response, error)
	Feedback(ctx context.Context, feedback, hypothesis string) (*gateway.Response, error)
}
