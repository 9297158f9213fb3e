package cli

import (
	"github.com/spf13/cobra"

	"meetscribe/pkg/config"
)

func NewRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "meetscribe",
		Short: "Stream, transcribe, and summarize meeting audio",
		Long: "meetscribe runs the real-time transcription pipeline: a server that " +
			"supervises speech-recognition workers behind a streaming link, and a " +
			"client that captures audio, reassembles the transcript, and keeps it " +
			"durably saved and summarized.",
	}

	rootCmd.AddCommand(NewServeCmd(cfg))
	rootCmd.AddCommand(NewRecordCmd(cfg))

	return rootCmd
}
