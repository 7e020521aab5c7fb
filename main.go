package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const AppName = "yt-bot"

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:           AppName,
		Short:         "Telegram bot that downloads YouTube media as MP4 or MP3",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config/config.yaml or ./config.yaml)")

	root.AddCommand(serveCMD(&cfgPath), probeCMD(&cfgPath), versionCMD())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func versionCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", AppName, version)
		},
	}
}
