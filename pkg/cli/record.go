package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"meetscribe/pkg/config"
	"meetscribe/pkg/meeting"
	"meetscribe/pkg/protocol"
	"meetscribe/pkg/session"
	"meetscribe/pkg/store"
	"meetscribe/pkg/summary"
)

// captureBlock mirrors the platform audio callback granularity.
const captureBlock = 4096

func NewRecordCmd(cfg *config.Config) *cobra.Command {
	var (
		meetingID   string
		meetingName string
		captureRate int
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Stream raw PCM from stdin through a transcription session",
		Long: "record reads 16-bit little-endian mono PCM from stdin (pipe it from " +
			"ffmpeg, sox, or a capture tool), streams it to the server, and keeps the " +
			"growing transcript saved and summarized until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cfg, meetingID, meetingName, captureRate)
		},
	}

	cmd.Flags().StringVar(&meetingID, "meeting", "", "backing meeting id to link the session to")
	cmd.Flags().StringVar(&meetingName, "name", "", "meeting name used when creating a meeting record")
	cmd.Flags().IntVar(&captureRate, "rate", 48000, "native sample rate of the piped audio")
	cmd.Flags().StringVar(&cfg.Client.ServerURL, "server", cfg.Client.ServerURL, "streaming server URL")

	return cmd
}

func runRecord(cfg *config.Config, meetingID, meetingName string, captureRate int) error {
	st, err := store.Open(cfg.StoragePath, cfg.Store)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer st.Close()

	ctrl := session.NewController(cfg, st,
		summary.NewHTTPSummarizer(cfg.Summary.Endpoint),
		meeting.NewHTTPClient(cfg.Meeting.BaseURL),
		session.Options{
			MeetingID:   meetingID,
			MeetingName: meetingName,
			CaptureRate: captureRate,
			Status: func(msg string) {
				fmt.Fprintln(os.Stderr, msg)
			},
		})

	if err := ctrl.Start(); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go feedStdin(ctrl)

	<-quit
	log.Println("stopping session...")
	for _, status := range ctrl.Stop(context.Background()) {
		fmt.Println(status)
	}
	return nil
}

// feedStdin plays the role of the platform audio callback: one fixed-size
// block of capture samples per iteration.
func feedStdin(ctrl *session.Controller) {
	buf := make([]byte, captureBlock*2)
	block := make([]float32, captureBlock)

	for {
		n, err := io.ReadFull(os.Stdin, buf)
		if n >= 2 {
			samples := protocol.DecodeFrame(buf[:n-n%2])
			for i, s := range samples {
				block[i] = float32(s) / 32768
			}
			ctrl.ProcessAudio(block[:len(samples)])
		}
		if err != nil {
			return
		}
	}
}
