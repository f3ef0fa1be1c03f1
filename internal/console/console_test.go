package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/MikeSquared-Agency/sherpa/internal/conversation"
	"github.com/MikeSquared-Agency/sherpa/internal/gateway"
)

type fakeGateway struct {
	askErr      error
	feedbackErr error
}

func (g *fakeGateway) Ask(ctx context.Context, prompt string) (*gateway.Response, error) {
	if g.askErr != nil {
		return nil, g.askErr
	}
	return &gateway.Response{Data: gateway.Payload{
		Content:    "Hi there",
		Hypotheses: []gateway.Hypothesis{{Hypothesis: "H1"}, {Hypothesis: "H2"}},
	}}, nil
}

func (g *fakeGateway) Feedback(ctx context.Context, feedback, hypothesis string) (*gateway.Response, error) {
	if g.feedbackErr != nil {
		return nil, g.feedbackErr
	}
	return &gateway.Response{Data: gateway.Payload{Content: "Thanks, noted " + hypothesis}}, nil
}

func run(t *testing.T, gw *fakeGateway, input string) (string, *conversation.Controller) {
	t.Helper()
	color.NoColor = true

	ctrl := conversation.New(gw, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(ctrl.Close)

	var out bytes.Buffer
	if err := Run(context.Background(), ctrl, strings.NewReader(input), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out.String(), ctrl
}

func TestRun_Conversation(t *testing.T) {
	out, ctrl := run(t, &fakeGateway{}, "Hello\n/hypotheses\nexit\nignored\n")

	for _, want := range []string{"Sherpa: Hi there", "1. H1", "2. H2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
	if n := len(ctrl.State().Messages); n != 2 {
		t.Errorf("expected 2 messages, got %d", n)
	}
}

func TestRun_FeedbackFlow(t *testing.T) {
	out, ctrl := run(t, &fakeGateway{}, "Hello\n/pick 2\n/feedback Good\n/pick 2\n")

	if !strings.Contains(out, "Please provide feedback before submitting.") {
		t.Errorf("expected validation notice:\n%s", out)
	}
	if !strings.Contains(out, "Feedback submitted successfully!") {
		t.Errorf("expected success notice:\n%s", out)
	}
	if !strings.Contains(out, "Sherpa: Feedback: Thanks, noted H2") {
		t.Errorf("expected feedback reply:\n%s", out)
	}
	if ctrl.State().FeedbackDraft != "" {
		t.Errorf("expected draft cleared, got %q", ctrl.State().FeedbackDraft)
	}
}

func TestRun_FeedbackFailure(t *testing.T) {
	out, ctrl := run(t, &fakeGateway{feedbackErr: errors.New("boom")}, "Hello\n/feedback Good\n/pick 1\n")

	if !strings.Contains(out, "Failed to submit feedback. Please try again.") {
		t.Errorf("expected error notice:\n%s", out)
	}
	if n := len(ctrl.State().Messages); n != 2 {
		t.Errorf("expected transcript unchanged at 2 messages, got %d", n)
	}
}

func TestRun_AskFailure(t *testing.T) {
	out, ctrl := run(t, &fakeGateway{askErr: errors.New("boom")}, "Hello\n")

	if !strings.Contains(out, "(no reply)") {
		t.Errorf("expected no-reply marker:\n%s", out)
	}
	if n := len(ctrl.State().Messages); n != 1 {
		t.Errorf("expected only the user message, got %d", n)
	}
}

func TestRun_BadPick(t *testing.T) {
	out, _ := run(t, &fakeGateway{}, "/pick 3\n/pick x\n")

	if strings.Count(out, "no hypothesis") != 2 {
		t.Errorf("expected two pick errors:\n%s", out)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ctrl := conversation.New(&fakeGateway{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, ctrl, strings.NewReader("Hello\n"), io.Discard)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun_SendsLineAsTyped(t *testing.T) {
	_, ctrl := run(t, &fakeGateway{}, "  Hello there  \n")

	msgs := ctrl.State().Messages
	if len(msgs) == 0 || msgs[0].Content != "  Hello there  " {
		t.Errorf("expected the line stored as typed, got %+v", msgs)
	}
}
