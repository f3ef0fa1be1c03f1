package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/sherpa/internal/conversation"
)

// TextRequest is the body of the input, feedback-draft and messages endpoints.
type TextRequest struct {
	Text string `json:"text"`
}

// FeedbackRequest is the body of POST /api/v1/conversation/feedback. A
// non-nil Feedback replaces the stored draft before submitting.
type FeedbackRequest struct {
	Hypothesis string  `json:"hypothesis"`
	Feedback   *string `json:"feedback,omitempty"`
}

// FeedbackResponse reports the notice shown for a feedback submission.
type FeedbackResponse struct {
	Notice conversation.Notice `json:"notice"`
	State  conversation.State  `json:"state"`
}

const heartbeatInterval = 15 * time.Second

// getConversation handles GET /api/v1/conversation
func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	c := s.sessions.resolve(w, r)
	writeJSON(w, http.StatusOK, c.State())
}

// deleteConversation handles DELETE /api/v1/conversation
func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	if c, ok := s.sessions.lookup(r); ok {
		s.sessions.Close(c.ID())
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// putInput handles PUT /api/v1/conversation/input
func (s *Server) putInput(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	c := s.sessions.resolve(w, r)
	c.SetInput(req.Text)
	writeJSON(w, http.StatusOK, c.State())
}

// putFeedbackDraft handles PUT /api/v1/conversation/feedback-draft
func (s *Server) putFeedbackDraft(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	c := s.sessions.resolve(w, r)
	c.SetFeedbackDraft(req.Text)
	writeJSON(w, http.StatusOK, c.State())
}

// postMessage handles POST /api/v1/conversation/messages. The ask call runs
// in the background, so the returned state may not include the new message
// yet; the events stream reports every change.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	c := s.sessions.resolve(w, r)

	if strings.TrimSpace(req.Text) == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.dispatch(func() {
		c.SendUserMessage(context.Background(), req.Text)
	})
	writeJSON(w, http.StatusAccepted, c.State())
}

// postFeedback handles POST /api/v1/conversation/feedback
func (s *Server) postFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	c := s.sessions.resolve(w, r)

	if req.Feedback != nil {
		c.SetFeedbackDraft(*req.Feedback)
	}
	notice := c.SubmitFeedback(r.Context(), req.Hypothesis)

	status := http.StatusOK
	switch notice.Level {
	case conversation.NoticeValidation:
		status = http.StatusUnprocessableEntity
	case conversation.NoticeError:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, FeedbackResponse{Notice: notice, State: c.State()})
}

// events handles GET /api/v1/conversation/events as a Server-Sent Events
// stream. The current state is sent first, then every state change and
// notice until the client goes away.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	c := s.sessions.resolve(w, r)
	defer s.sessions.hold(c.ID())()
	ctx := r.Context()

	ch := make(chan conversation.Event, 32)
	unsubscribe := c.Subscribe(func(e conversation.Event) {
		select {
		case ch <- e:
		case <-ctx.Done():
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, "state", conversation.Event{Kind: conversation.EventState, State: c.State()})
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
		case e := <-ch:
			switch e.Kind {
			case conversation.EventState:
				writeEvent(w, "state", e)
			case conversation.EventNotice:
				writeEvent(w, "notice", e)
			default:
				continue
			}
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, name string, e conversation.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}
