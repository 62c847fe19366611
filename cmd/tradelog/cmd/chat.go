package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/assistant"
	"github.com/rustyeddy/tradelog/logger"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Ask the assistant about your trading",
	Long: `Send a message to the trading assistant. With a message argument the
reply is printed and the command exits; without one an interactive prompt
is started. "switch to <name>" or "load the <name> session" changes the
session the assistant focuses on.

Examples:
  tradelog chat "How did my BTC sessions go this week?"
  tradelog chat --session <session-id>`,
	RunE: runChat,
}

var chatSession string

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session to start the conversation in")
}

func runChat(cmd *cobra.Command, args []string) error {
	_, store, err := openTracker()
	if err != nil {
		return err
	}
	defer store.Close()

	a := newAssistant(store)
	out := cmd.OutOrStdout()
	current := chatSession

	send := func(text string) error {
		reply, err := a.HandleMessage(cmd.Context(), text, userID, current)
		if err != nil {
			return err
		}
		if reply.Kind == assistant.SessionSwitch {
			current = reply.SessionID
		}
		fmt.Fprintf(out, "%s: %s\n", a.Persona(), reply.Text)
		return nil
	}

	if len(args) > 0 {
		err := send(strings.Join(args, " "))
		if errors.Is(err, assistant.ErrChatBackend) {
			logger.L.Error("chat backend error", "error", err)
			return errors.New(a.FailureMessage())
		}
		return err
	}

	loc, err := cfg.Server.Location()
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	fmt.Fprintln(out, assistant.Greeting(time.Now().In(loc), userID))
	q := a.Quote(cmd.Context())
	fmt.Fprintf(out, "\"%s\" (%s)\n\n", q.Content, q.Author)
	fmt.Fprintln(out, `Type a message, or "exit" to quit.`)

	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
		text := strings.TrimSpace(in.Text())
		switch text {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := send(text); err != nil {
			if errors.Is(err, assistant.ErrChatBackend) {
				logger.L.Error("chat backend error", "error", err)
				fmt.Fprintln(out, a.FailureMessage())
				continue
			}
			return err
		}
	}
}
