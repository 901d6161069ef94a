package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aretw0/configurator/pkg/wizard"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run the wizard in the terminal",
	Long: `Runs the configurator wizard on stdin/stdout.
Type text to answer a prompt or the number of a button to press it.
/start shows the menu, /cancel drops the current session, /quit exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		t := &terminal{
			svc:         a.Wizard,
			user:        user,
			in:          bufio.NewScanner(os.Stdin),
			out:         os.Stdout,
			interactive: term.IsTerminal(int(os.Stdin.Fd())),
		}
		return t.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("user", "u", "terminal", "User id the session is stored under")
}

// terminal drives a wizard.Service from line-based input.
type terminal struct {
	svc         *wizard.Service
	user        string
	in          *bufio.Scanner
	out         io.Writer
	interactive bool

	buttons []wizard.Choice
}

// Run shows the current view and handles lines until EOF or /quit.
func (t *terminal) Run(ctx context.Context) error {
	reply, err := t.svc.Current(ctx, t.user)
	if err != nil {
		return err
	}
	t.show(reply)

	for {
		if t.interactive {
			fmt.Fprint(t.out, "> ")
		}
		if !t.in.Scan() {
			return t.in.Err()
		}
		line := strings.TrimSpace(t.in.Text())
		if line == "/quit" || line == "/exit" {
			fmt.Fprintln(t.out, "Bye!")
			return nil
		}

		reply, err := t.handle(ctx, line)
		if err != nil {
			return err
		}
		t.show(reply)

		// A finished flow already holds a fresh session; show its prompt too.
		if reply.Prompt == wizard.PromptDone {
			next, err := t.svc.Current(ctx, t.user)
			if err != nil {
				return err
			}
			t.show(next)
		}
	}
}

func (t *terminal) handle(ctx context.Context, line string) (wizard.Reply, error) {
	switch line {
	case "/start":
		reply, err := t.svc.Cancel(ctx, t.user)
		reply.Notice = ""
		return reply, err
	case "/cancel":
		return t.svc.Cancel(ctx, t.user)
	}
	if n, err := strconv.Atoi(line); err == nil && len(t.buttons) > 0 {
		if n < 1 || n > len(t.buttons) {
			reply, err := t.svc.Current(ctx, t.user)
			reply.Notice = fmt.Sprintf("No button %d.", n)
			return reply, err
		}
		return t.svc.Action(ctx, t.user, t.buttons[n-1].Action)
	}
	return t.svc.Text(ctx, t.user, line)
}

func (t *terminal) show(r wizard.Reply) {
	if r.Notice != "" {
		fmt.Fprintf(t.out, "! %s\n", r.Notice)
	}
	if r.Text != "" {
		fmt.Fprintln(t.out, strings.TrimRight(r.Text, "\n"))
	}
	if r.LastPage > 0 {
		fmt.Fprintf(t.out, "(page %d/%d)\n", r.Page+1, r.LastPage+1)
	}

	t.buttons = append(append([]wizard.Choice(nil), r.Choices...), r.Nav...)
	for i, b := range t.buttons {
		fmt.Fprintf(t.out, "  [%d] %s\n", i+1, b.Label)
	}
}
