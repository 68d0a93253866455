package cmds

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jamerly/chatbox/pkg/bus"
	"github.com/jamerly/chatbox/pkg/chatrunner"
	"github.com/jamerly/chatbox/pkg/redisstream"
	"github.com/jamerly/chatbox/pkg/useraction"
	"github.com/jamerly/chatbox/pkg/widget"
)

func NewChatCommand(app *App) *cobra.Command {
	var (
		mode        string
		skin        string
		noAltScreen bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive chat",
		Long: "Open an interactive chat. On a terminal this starts the full screen UI, " +
			"otherwise every input line is sent as one message.",
		Args: cobra.NoArgs,
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

			runMode := chatrunner.RunMode(mode)
			if mode == "" {
				runMode = chatrunner.RunModeLine
				if isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()) {
					runMode = chatrunner.RunModeChat
				}
			}

			widgetOpts := []widget.Option{
				widget.WithSessionStore(store),
				widget.WithInactivity(app.Settings.Inactivity),
				widget.OnUserAction(func(op useraction.Operation) {
					log.Info().Str("operation", op.Name).Interface("params", op.Params).Msg("user operation requested")
				}),
			}
			switch skin {
			case "", string(widget.SkinTerminal):
			case string(widget.SkinChatbox):
				widgetOpts = append(widgetOpts, widget.WithSkin(widget.SkinChatbox))
			default:
				return errors.Errorf("unknown skin %q", skin)
			}

			builder := chatrunner.NewChatBuilder().
				WithContext(ctx).
				WithBackend(c).
				WithWidgetOptions(widgetOpts...).
				WithMode(runMode).
				WithOutputWriter(cmd.OutOrStdout()).
				WithInput(cmd.InOrStdin())

			if runMode == chatrunner.RunModeChat {
				if err := app.RedirectLogs(); err != nil {
					return err
				}
				builder = builder.WithAltScreen(!noAltScreen)
				ps, err := redisstream.Build(app.Settings.Redis, bus.NewZerologAdapter(log.Logger))
				if err != nil {
					return err
				}
				defer func() { _ = ps.Close() }()
				builder = builder.WithPubSub(ps)
			}

			session, err := builder.Build()
			if err != nil {
				return err
			}
			return session.Run()
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "run mode: chat (full screen) or line; picked from the terminal when empty")
	cmd.Flags().StringVar(&skin, "skin", string(widget.SkinTerminal), "initial skin: terminal or chatbox")
	cmd.Flags().BoolVar(&noAltScreen, "no-alt-screen", false, "render inline instead of on the alternate screen")
	return cmd
}
