package conversation

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Controller owns one conversation: its transcript, the current hypotheses,
// the user's drafts and the loading flag. All state changes go through it and
// are announced to subscribers.
//
// Requests may overlap. Transcript entries are appended in the order their
// responses arrive. Hypothesis lists are tagged with the sequence number of
// the request that produced them and a list from an older request never
// replaces one from a newer request.
type Controller struct {
	id      uuid.UUID
	gateway Gateway
	logger  *slog.Logger

	// ctx is cancelled by Close and bounds every gateway call.
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         State
	version       uint64
	inflight      int
	nextSeq       uint64
	hypothesesSeq uint64
	closed        bool
	subs          map[int]*subscriber
	nextSub       int
}

func New(gw Gateway, logger *slog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	return &Controller{
		id:      id,
		gateway: gw,
		logger:  logger.With("conversation", id.String()),
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[int]*subscriber),
	}
}

func (c *Controller) ID() uuid.UUID { return c.id }

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn for every future event. Events reach fn in the order
// they were produced, on a goroutine owned by the subscription, so fn may call
// back into the controller. The returned func cancels the subscription.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return func() {}
	}
	s := newSubscriber(fn)
	id := c.nextSub
	c.nextSub++
	c.subs[id] = s

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		s.stop()
	}
}

// SetInput records what the user is typing.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state.PendingInput == text {
		return
	}
	c.state.PendingInput = text
	c.changed()
}

// SetFeedbackDraft records the feedback the user is writing.
func (c *Controller) SetFeedbackDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state.FeedbackDraft == text {
		return
	}
	c.state.FeedbackDraft = text
	c.changed()
}

// SendUserMessage appends text as a user message and asks the service for a
// reply. Blank text is ignored and false is returned. The call blocks until
// the service answers or fails; a failure leaves no reply in the transcript.
func (c *Controller) SendUserMessage(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.nextSeq++
	seq := c.nextSeq
	c.state.PendingInput = ""
	c.inflight++
	c.state.IsLoading = true
	c.appendMessage(Message{Role: RoleUser, Content: text})
	c.mu.Unlock()

	callCtx, done := c.bind(ctx)
	resp, err := c.gateway.Ask(callCtx, text)
	done()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}

	c.inflight--
	c.state.IsLoading = c.inflight > 0

	if err != nil {
		c.logger.Warn("ask failed, no reply added", "seq", seq, "error", err)
		c.changed()
		return true
	}

	c.applyHypotheses(seq, resp.HypothesisTexts())
	c.appendMessage(Message{Role: RoleAssistant, Content: resp.Data.Content})
	return true
}

// SubmitFeedback sends the current feedback draft about hypothesis. It returns
// the notice shown to the user, which is also published to subscribers. The
// draft is cleared whether or not the service accepted it, but a blank draft
// is rejected before any request is made and left untouched.
func (c *Controller) SubmitFeedback(ctx context.Context, hypothesis string) Notice {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Notice{Level: NoticeError, Text: textFeedbackFailed}
	}
	draft := c.state.FeedbackDraft
	if strings.TrimSpace(draft) == "" {
		n := Notice{Level: NoticeValidation, Text: textFeedbackRequired}
		c.notify(n)
		c.mu.Unlock()
		return n
	}
	c.nextSeq++
	seq := c.nextSeq
	c.mu.Unlock()

	callCtx, done := c.bind(ctx)
	resp, err := c.gateway.Feedback(callCtx, draft, hypothesis)
	done()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Notice{Level: NoticeError, Text: textFeedbackFailed}
	}

	c.state.FeedbackDraft = ""

	var n Notice
	if err != nil {
		c.logger.Warn("feedback failed", "seq", seq, "hypothesis", hypothesis, "error", err)
		c.changed()
		n = Notice{Level: NoticeError, Text: textFeedbackFailed}
	} else {
		c.applyHypotheses(seq, resp.HypothesisTexts())
		c.appendMessage(Message{Role: RoleAssistant, Content: feedbackPrefix + resp.Data.Content})
		n = Notice{Level: NoticeSuccess, Text: textFeedbackSent}
	}
	c.notify(n)
	return n
}

// Close disposes the controller. In-flight requests are cancelled, their late
// results are dropped and no further events are delivered.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	c.cancel()
	for _, s := range subs {
		s.stop()
	}
}

// bind derives a context that ends when either ctx or the controller ends.
func (c *Controller) bind(ctx context.Context) (context.Context, func()) {
	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return callCtx, func() {
		stop()
		cancel()
	}
}

// The helpers below must be called with c.mu held.

func (c *Controller) applyHypotheses(seq uint64, hypotheses []string) {
	if seq < c.hypothesesSeq {
		c.logger.Debug("dropping stale hypotheses", "seq", seq, "current", c.hypothesesSeq)
		return
	}
	c.hypothesesSeq = seq
	c.state.Hypotheses = hypotheses
}

func (c *Controller) appendMessage(m Message) {
	c.state.Messages = append(c.state.Messages, m)
	c.version++
	snap := c.state.clone()
	c.publish(Event{Kind: EventMessage, Version: c.version, State: snap, Message: &m})
	c.publish(Event{Kind: EventState, Version: c.version, State: snap})
}

func (c *Controller) changed() {
	c.version++
	c.publish(Event{Kind: EventState, Version: c.version, State: c.state.clone()})
}

func (c *Controller) notify(n Notice) {
	c.publish(Event{Kind: EventNotice, Version: c.version, State: c.state.clone(), Notice: &n})
}

func (c *Controller) publish(e Event) {
	for _, s := range c.subs {
		s.push(e)
	}
}
