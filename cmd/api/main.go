package main

import (
	"fmt"
	"os"

	"atomdeck/api/internal/app"
	"atomdeck/api/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:           "atomdeck-api",
		Short:         "Atomic operation engine and HTTP API for Atomdeck presentations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (json or console)")
	bindFlag(v, root, "LOG_LEVEL", "log-level")
	bindFlag(v, root, "LOG_FORMAT", "log-format")

	root.AddCommand(newServeCommand(v), newReplayCommand(v), newVersionCommand())
	return root
}

// bindFlag lets a flag override its environment key only when set.
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	f := cmd.PersistentFlags().Lookup(flag)
	if f == nil {
		f = cmd.Flags().Lookup(flag)
	}
	if f != nil {
		_ = v.BindPFlag(key, f)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the API version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.Version)
		},
	}
}
