// Package console is the line-oriented front end used by sherpa-term --plain.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/MikeSquared-Agency/sherpa/internal/conversation"
)

var (
	boldGreen  = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	boldYellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	boldRed    = color.New(color.FgRed, color.Bold).SprintFunc()
	faint      = color.New(color.Faint).SprintFunc()
)

const usage = `Type your message and press Enter.
  /hypotheses        list the current hypotheses
  /feedback <text>   set the feedback draft
  /pick <n>          submit the draft against hypothesis n
  exit               quit`

// Run reads commands from in until EOF, "exit" or ctx is done. Every call to
// the controller completes before the next line is read.
func Run(ctx context.Context, ctrl *conversation.Controller, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, boldGreen("The First Sherpa*AI"))
	fmt.Fprintln(out, usage)
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(out, boldGreen("You: "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "exit"):
			return nil
		case line == "/hypotheses":
			printHypotheses(out, ctrl.State().Hypotheses)
		case line == "/feedback" || strings.HasPrefix(line, "/feedback "):
			ctrl.SetFeedbackDraft(strings.TrimSpace(strings.TrimPrefix(line, "/feedback")))
			fmt.Fprintln(out, faint("Feedback draft saved."))
		case line == "/pick" || strings.HasPrefix(line, "/pick "):
			pick(ctx, ctrl, out, strings.TrimSpace(strings.TrimPrefix(line, "/pick")))
		default:
			send(ctx, ctrl, out, raw)
		}
	}
}

func send(ctx context.Context, ctrl *conversation.Controller, out io.Writer, text string) {
	before := len(ctrl.State().Messages)
	fmt.Fprintln(out, faint("Loading..."))
	if !ctrl.SendUserMessage(ctx, text) {
		return
	}

	st := ctrl.State()
	if !printReplies(out, st.Messages, before) {
		fmt.Fprintln(out, faint("(no reply)"))
		return
	}
	printHypotheses(out, st.Hypotheses)
}

func pick(ctx context.Context, ctrl *conversation.Controller, out io.Writer, arg string) {
	st := ctrl.State()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(st.Hypotheses) {
		fmt.Fprintln(out, boldRed(fmt.Sprintf("no hypothesis %q; use /hypotheses to list them", arg)))
		return
	}

	notice := ctrl.SubmitFeedback(ctx, st.Hypotheses[n-1])
	printNotice(out, notice)
	if notice.Level == conversation.NoticeSuccess {
		printReplies(out, ctrl.State().Messages, len(st.Messages))
	}
}

// printReplies prints the assistant messages from index from onward and
// reports whether there were any.
func printReplies(out io.Writer, messages []conversation.Message, from int) bool {
	printed := false
	for _, msg := range messages[min(from, len(messages)):] {
		if msg.Role != conversation.RoleAssistant {
			continue
		}
		fmt.Fprintf(out, "%s%s\n\n", boldCyan("Sherpa: "), msg.Content)
		printed = true
	}
	return printed
}

func printHypotheses(out io.Writer, hypotheses []string) {
	if len(hypotheses) == 0 {
		fmt.Fprintln(out, faint("(no hypotheses yet)"))
		return
	}
	fmt.Fprintln(out, boldYellow("Hypotheses:"))
	for i, h := range hypotheses {
		fmt.Fprintf(out, "  %d. %s\n", i+1, h)
	}
}

func printNotice(out io.Writer, n conversation.Notice) {
	switch n.Level {
	case conversation.NoticeSuccess:
		fmt.Fprintln(out, boldGreen(n.Text))
	case conversation.NoticeValidation:
		fmt.Fprintln(out, boldYellow(n.Text))
	default:
		fmt.Fprintln(out, boldRed(n.Text))
	}
}
