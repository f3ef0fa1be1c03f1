package hermes

import (
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/sherpa/internal/conversation"
)

const (
	// SubjectMessage carries every message appended to a transcript.
	SubjectMessage = "sherpa.conversation.message"
	// SubjectNotice carries every notice shown to a user.
	SubjectNotice = "sherpa.conversation.notice"
	// SubjectRegistered is published once when a server starts.
	SubjectRegistered = "sherpa.agent.registered"
)

// MessageEvent is the payload published on SubjectMessage.
type MessageEvent struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NoticeEvent is the payload published on SubjectNotice.
type NoticeEvent struct {
	SessionID string    `json:"session_id"`
	Level     string    `json:"level"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(subject string, data any) error
}

// Relay forwards conversation events to NATS.
type Relay struct {
	pub    Publisher
	logger *slog.Logger
}

func NewRelay(pub Publisher, logger *slog.Logger) *Relay {
	return &Relay{pub: pub, logger: logger}
}

// Attach starts forwarding the controller's messages and notices. Publish
// errors are logged and otherwise ignored.
func (r *Relay) Attach(c *conversation.Controller) (detach func()) {
	sessionID := c.ID().String()
	return c.Subscribe(func(e conversation.Event) {
		var (
			subject string
			payload any
		)
		switch {
		case e.Kind == conversation.EventMessage && e.Message != nil:
			subject = SubjectMessage
			payload = MessageEvent{
				SessionID: sessionID,
				Role:      string(e.Message.Role),
				Content:   e.Message.Content,
				Timestamp: time.Now().UTC(),
			}
		case e.Kind == conversation.EventNotice && e.Notice != nil:
			subject = SubjectNotice
			payload = NoticeEvent{
				SessionID: sessionID,
				Level:     string(e.Notice.Level),
				Text:      e.Notice.Text,
				Timestamp: time.Now().UTC(),
			}
		default:
			return
		}

		if err := r.pub.Publish(subject, payload); err != nil {
			r.logger.Warn("relay publish failed", "subject", subject, "session", sessionID, "error", err)
		}
	})
}

// AnnounceRegistration tells the swarm a server is up.
func (r *Relay) AnnounceRegistration(port int, serverURL string) error {
	return r.pub.Publish(SubjectRegistered, map[string]any{
		"agent":      "sherpa",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"port":       port,
		"server_url": serverURL,
	})
}
