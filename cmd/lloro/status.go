package main

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/lloro-ai/lloro/internal/model/chat"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend health and the active session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		health := a.backend.HealthCheck(ctx)
		switch {
		case !health.Alive:
			fmt.Println(errorStyle.Render("backend: offline") + dateStyle.Render("  ("+a.cfg.Client.BackendURL+")"))
		case health.Model == "":
			fmt.Println(activeStyle.Render("backend: ready"))
		default:
			fmt.Printf("%s  model %s, mode %s\n", activeStyle.Render("backend: ready"), health.Model, health.Mode)
		}

		sess, ok := a.store.Active()
		if !ok {
			fmt.Println("no active session")
			return nil
		}
		desc, err := a.manager.Describe(sess.ID)
		if err != nil {
			return err
		}
		fmt.Printf("session %s: model %s, %d message(s), %d pinned page(s)\n",
			idStyle.Render(shortID(desc.ID)), desc.Model, desc.Messages, desc.PinnedPages)
		if desc.Uninitialized {
			fmt.Println(warnStyle.Render("session is uninitialized: the backend handshake failed; it is retried on switch"))
		}
		if pending := sess.PendingPins(); len(pending) > 0 {
			for _, pc := range pending {
				fmt.Printf("  pending: %s\n", pc.SourceURL)
			}
		}
		return nil
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy the last assistant reply to the clipboard",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, ok := a.store.Active()
		if !ok {
			return fmt.Errorf("no active session")
		}
		for i := len(sess.Messages) - 1; i >= 0; i-- {
			if sess.Messages[i].Role == chat.RoleAssistant {
				if err := clipboard.WriteAll(sess.Messages[i].Text); err != nil {
					return fmt.Errorf("write clipboard: %w", err)
				}
				fmt.Println("copied")
				return nil
			}
		}
		return fmt.Errorf("no assistant reply yet")
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(copyCmd)
}
