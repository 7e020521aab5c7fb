package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ytget/yt-bot/internal/config"
	"github.com/ytget/yt-bot/internal/platform"
)

// probeCMD checks a link the same way the bot does, without Telegram
func probeCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <url>",
		Short: "Validate a link and print its title and duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}

			source := platform.NormalizeSource(args[0])
			if !platform.ValidateSource(source) {
				return fmt.Errorf("not a supported YouTube link: %q", args[0])
			}

			prober := platform.NewProbeService(settings.GetYtdlpExecutable(), zerolog.Nop())
			prober.SetTimeout(settings.GetProbeTimeout())

			res, err := prober.Probe(cmd.Context(), source)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "title:    %s\n", res.Title)
			fmt.Fprintf(out, "duration: %s\n", res.GetDurationString())
			return nil
		},
	}
}
