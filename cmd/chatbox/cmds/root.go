package cmds

import "github.com/spf13/cobra"

// NewRootCommand assembles the chatbox command tree.
func NewRootCommand() *cobra.Command {
	app := NewApp()
	rootCmd := &cobra.Command{
		Use:          "chatbox",
		Short:        "chatbox is a terminal client for chatbases chat widgets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// reinitialize the logger because we can now parse --log-level and co
			return app.Load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
		},
	}
	app.AddPersistentFlags(rootCmd)

	rootCmd.AddCommand(
		NewChatCommand(app),
		NewSendCommand(app),
		NewHistoryCommand(app),
		NewInitCommand(app),
		NewEndCommand(app),
		NewMockServerCommand(app),
	)
	return rootCmd
}
