package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lloro-ai/lloro/internal/model/chat"
	"github.com/lloro-ai/lloro/internal/rpc"
	chatsvc "github.com/lloro-ai/lloro/internal/service/chat"
	"github.com/lloro-ai/lloro/internal/service/pin"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat interactively in the active session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.store.EnsureActive(ctx, a.cfg.Client.Model)
		if err != nil {
			return err
		}

		if health := a.backend.HealthCheck(ctx); !health.Alive {
			fmt.Println(warnStyle.Render("backend offline; start llorod first"))
		}

		for _, msg := range sess.Messages {
			printMessage(msg)
		}
		if pending := sess.PendingPins(); len(pending) > 0 {
			fmt.Println(dateStyle.Render(fmt.Sprintf("%d pinned page(s) will go out with your next message", len(pending))))
		}

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for {
			fmt.Print(userStyle.Render("you> "))
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "/quit" || line == "/exit" {
				return nil
			}

			reply, err := a.orch.SendTurn(ctx, sess.ID, line)
			if err != nil {
				fmt.Println(errorStyle.Render("error: " + describeError(err)))
				continue
			}
			fmt.Println(assistantStyle.Render(reply))
		}
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one message to the active session and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.store.EnsureActive(ctx, a.cfg.Client.Model)
		if err != nil {
			return err
		}

		reply, err := a.orch.SendTurn(ctx, sess.ID, strings.Join(args, " "))
		if err != nil {
			return errors.New(describeError(err))
		}
		fmt.Println(reply)
		return nil
	},
}

func printMessage(msg chat.Message) {
	switch msg.Role {
	case chat.RoleUser:
		fmt.Println(userStyle.Render("you> ") + msg.Text)
	case chat.RoleAssistant:
		fmt.Println(assistantStyle.Render(msg.Text))
	}
}

// describeError keeps backend failures readable at the prompt. These
// messages are transient: nothing about a failed turn is persisted.
func describeError(err error) string {
	var remote *rpc.RemoteError
	var transport *rpc.TransportError
	switch {
	case errors.Is(err, chatsvc.ErrEmptyMessage):
		return "message is empty"
	case errors.Is(err, chatsvc.ErrTurnInFlight):
		return "still waiting for the previous reply"
	case errors.Is(err, pin.ErrExtractionFailed):
		return err.Error()
	case errors.As(err, &remote):
		return "backend: " + remote.Message
	case errors.As(err, &transport):
		return transport.Error()
	default:
		return err.Error()
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sendCmd)
}
