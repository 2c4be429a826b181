package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lloro-ai/lloro/internal/extract"
)

var pinCmd = &cobra.Command{
	Use:   "pin [url]",
	Short: "Pin a page's content to the active session",
	Long: `Pin extracts the readable content of a page and attaches it to the
active session. It goes out once, with your next message. With no
argument the URL is taken from the clipboard; copy it from your browser
first.

A URL can be pinned at most once per session; pinning it again is a
no-op.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var url string
		if len(args) == 1 {
			url = args[0]
		} else {
			var tabs extract.ClipboardTabs
			url, err = tabs.CurrentURL()
			if err != nil {
				return fmt.Errorf("%w (or pass the URL as an argument)", err)
			}
		}

		sess, err := a.store.EnsureActive(ctx, a.cfg.Client.Model)
		if err != nil {
			return err
		}

		pc, created, err := a.pinner.Pin(ctx, sess.ID, url)
		if err != nil {
			return err
		}
		if !created {
			fmt.Printf("already pinned: %s\n", pc.SourceURL)
			return nil
		}
		fmt.Printf("pinned %q (%d chars), delivered with your next message\n", pc.Title, len(pc.Content))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pinCmd)
}
