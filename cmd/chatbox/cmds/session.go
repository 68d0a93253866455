package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jamerly/chatbox/pkg/chatbox"
)

func NewInitCommand(app *App) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Open or resume a chat session and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := app.Client()
			if err != nil {
				return err
			}
			store, err := app.Store(ctx)
			if err != nil {
				return err
			}

			stored := ""
			if !fresh {
				if stored, _, err = store.Get(ctx, chatbox.SessionStorageKey); err != nil {
					return err
				}
			}
			res, err := c.InitSession(ctx, stored)
			if err != nil {
				return err
			}
			if err := store.Set(ctx, chatbox.SessionStorageKey, res.SessionID); err != nil {
				return errors.Wrap(err, "persist session id")
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "session: %s\n", res.SessionID)
			if res.WelcomeText != "" {
				_, _ = fmt.Fprintln(out, res.WelcomeText)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fresh, "fresh", false, "ignore the stored session and start a new one")
	return cmd
}

func NewHistoryCommand(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the conversation history of the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := app.Client()
			if err != nil {
				return err
			}
			store, err := app.Store(ctx)
			if err != nil {
				return err
			}
			stored, ok, err := store.Get(ctx, chatbox.SessionStorageKey)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("no stored session, run `chatbox init` or `chatbox chat` first")
			}

			items, err := c.FetchHistory(ctx, stored)
			if err != nil {
				return err
			}
			return writeHistory(cmd, output, items)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	return cmd
}

func writeHistory(cmd *cobra.Command, format string, items []chatbox.HistoryItem) error {
	out := cmd.OutOrStdout()
	switch format {
	case "text":
		for _, item := range items {
			_, _ = fmt.Fprintf(out, "> %s\n%s\n\n", item.UserMessage, item.AIResponse)
		}
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer func() { _ = enc.Close() }()
		return enc.Encode(items)
	default:
		return errors.Errorf("unknown output format %q", format)
	}
}

func NewEndCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "Forget the stored session; the next chat starts fresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := app.Store(ctx)
			if err != nil {
				return err
			}
			if err := store.Delete(ctx, chatbox.SessionStorageKey); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Session cleared.")
			return nil
		},
	}
}
