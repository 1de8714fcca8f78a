package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/BioHazard786/huddle/internal/ui"
	"github.com/BioHazard786/huddle/internal/version"
	"github.com/spf13/cobra"
)

var flagConfigFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "huddle",
	Short: "Terminal video rooms over WebRTC",
	Long: `huddle joins a named room and connects you to everyone in it with peer-to-peer
audio, video and screen sharing, plus a text chat, all from the terminal.

Run "huddle relay" to host the room relay the clients meet through.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "Config file (default ./huddle.yaml or ~/.config/huddle/huddle.yaml)")
}
