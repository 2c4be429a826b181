package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lloro-ai/lloro/internal/model/chat"
)

var (
	newModel  string
	deleteYes bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and manage chat sessions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions := a.store.List()
		if len(sessions) == 0 {
			fmt.Println("no sessions yet; run `lloro sessions new`")
			return nil
		}

		current := a.store.CurrentID()
		fmt.Println(headerStyle.Render(fmt.Sprintf("%d session(s)", len(sessions))))
		for _, sess := range sessions {
			printSessionLine(sess, sess.ID == current)
		}
		return nil
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a session and make it active",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		model := newModel
		if model == "" {
			model = a.cfg.Client.Model
		}

		sess, err := a.manager.New(ctx, model)
		if sess == nil {
			return err
		}
		if err != nil {
			// The session is live; only the backend handshake failed.
			fmt.Println(warnStyle.Render("backend init failed (" + describeError(err) + "); session created but uninitialized"))
		}
		fmt.Printf("session %s is active (model %s)\n", idStyle.Render(shortID(sess.ID)), sess.Model)
		return nil
	},
}

var sessionsSwitchCmd = &cobra.Command{
	Use:   "switch <id>",
	Short: "Make another session active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveSessionID(a, args[0])
		if err != nil {
			return err
		}

		sess, err := a.manager.Switch(ctx, id)
		if err != nil && sess == nil {
			return err
		}
		if err != nil {
			fmt.Println(warnStyle.Render("backend init failed (" + describeError(err) + "); session active but uninitialized"))
		}
		fmt.Printf("switched to %s (%d messages)\n", idStyle.Render(shortID(sess.ID)), len(sess.Messages))
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveSessionID(a, args[0])
		if err != nil {
			return err
		}

		desc, err := a.manager.Describe(id)
		if err != nil {
			return err
		}

		if !deleteYes {
			fmt.Printf("delete session %s: %d message(s), %d pinned page(s). This cannot be undone.\n",
				shortID(desc.ID), desc.Messages, desc.PinnedPages)
			fmt.Print("type y to confirm: ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.TrimSpace(answer) != "y" {
				fmt.Println("aborted")
				return nil
			}
		}

		active, err := a.manager.Delete(ctx, id)
		if active == nil {
			return err
		}
		if err != nil {
			// Deleting the last session creates a replacement; only its
			// backend handshake failed.
			fmt.Println(warnStyle.Render("backend init failed (" + describeError(err) + "); replacement session is uninitialized"))
		}
		fmt.Printf("deleted; active session is now %s\n", idStyle.Render(shortID(active.ID)))
		return nil
	},
}

func printSessionLine(sess *chat.Session, active bool) {
	marker := "  "
	if active {
		marker = activeStyle.Render("* ")
	}
	flags := ""
	if sess.Uninitialized {
		flags = " " + warnStyle.Render("[uninitialized]")
	}
	fmt.Printf("%s%s  %s  %d msg, %d pinned  %s%s\n",
		marker,
		idStyle.Render(shortID(sess.ID)),
		sess.Model,
		len(sess.Messages),
		len(sess.PinnedTabs),
		dateStyle.Render(sess.LastActiveAt.Local().Format(time.DateTime)),
		flags)
}

// resolveSessionID accepts a full id or an unambiguous prefix.
func resolveSessionID(a *app, arg string) (string, error) {
	if _, err := a.store.Get(arg); err == nil {
		return arg, nil
	}

	var matches []string
	for _, sess := range a.store.List() {
		if strings.HasPrefix(sess.ID, arg) {
			matches = append(matches, sess.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no session matches %q", arg)
	default:
		return "", fmt.Errorf("%q matches %d sessions, be more specific", arg, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	sessionsNewCmd.Flags().StringVar(&newModel, "model", "", "Model for the new session (default from config)")
	sessionsDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation prompt")

	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsSwitchCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
