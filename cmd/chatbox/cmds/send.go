package cmds

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamerly/chatbox/pkg/chatrunner"
	"github.com/jamerly/chatbox/pkg/widget"
)

func NewSendCommand(app *App) *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send one message and print the streamed reply",
		Args:  cobra.MinimumNArgs(1),
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

			mode := chatrunner.RunModeBlocking
			if interactive {
				mode = chatrunner.RunModeInteractive
			}
			session, err := chatrunner.NewChatBuilder().
				WithContext(ctx).
				WithBackend(c).
				WithWidgetOptions(
					widget.WithSessionStore(store),
					widget.WithInactivity(app.Settings.Inactivity),
				).
				WithMode(mode).
				WithMessage(strings.Join(args, " ")).
				WithOutputWriter(cmd.OutOrStdout()).
				Build()
			if err != nil {
				return err
			}
			return session.Run()
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "offer to continue in the chat UI after the reply")
	return cmd
}
