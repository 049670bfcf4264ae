package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/wirecast/internal/api"
	"github.com/bryanchriswhite/wirecast/internal/decoder"
	"github.com/bryanchriswhite/wirecast/internal/logger"
	"github.com/bryanchriswhite/wirecast/internal/output"
	"github.com/bryanchriswhite/wirecast/internal/pipeline"
	"github.com/bryanchriswhite/wirecast/internal/transport"
)

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Receive the frame stream and serve a local preview",
	Long: `Open the serial port, reassemble length-prefixed JPEG frames from the
byte stream, and serve them as a local MJPEG preview with live telemetry.

Open http://localhost:<server-port>/stream in a browser to watch the feed.
POST /api/screenshot saves the most recent frame as a PNG.`,
	Example: `  # Receive from a USB serial device
  wirecast receive --port /dev/ttyACM0

  # Custom preview port and screenshot directory
  wirecast receive --port /dev/ttyACM0 --server-port 9090 --screenshot-dir ~/Pictures`,
	RunE: runReceive,
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().String("port", "", "serial port to read from (required)")
	receiveCmd.Flags().Int("baud", 0, "serial baud rate")
	receiveCmd.Flags().Duration("read-timeout", 0, "serial read timeout")
	receiveCmd.Flags().Uint32("max-frame-bytes", 0, "maximum accepted frame payload size")
	receiveCmd.Flags().Int("server-port", 0, "preview/status HTTP port")
	receiveCmd.Flags().String("screenshot-dir", "", "directory for saved screenshots")
	receiveCmd.MarkFlagRequired("port")
}

func runReceive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.WithComponent("receive")
	log.Info().
		Str("port", cfg.Port).
		Int("baud_rate", cfg.BaudRate).
		Dur("read_timeout", cfg.ReadTimeout).
		Int("server_port", cfg.ServerPort).
		Msg("starting receiver")

	conn, err := transport.OpenSerial(transport.SerialOptions{
		Port:        cfg.Port,
		BaudRate:    cfg.BaudRate,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return err
	}

	preview := output.NewMJPEGOutput()
	if err := preview.Start(); err != nil {
		conn.Close()
		return err
	}
	defer preview.Stop()

	recv := pipeline.NewReceiver(cfg, decoder.NewJPEGDecoder(), preview, conn)
	server := api.NewServer(recv, preview, cfg)

	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Error().Err(err).Msg("status server failed")
		}
	}()

	if err := recv.Start(); err != nil {
		conn.Close()
		return err
	}

	// Pump pipeline telemetry to the log and the websocket subscribers.
	go func() {
		for {
			select {
			case ev := <-recv.Events():
				server.Publish(ev)
				switch ev.Kind {
				case pipeline.EventRateSample:
					log.Info().Float64("fps", ev.FPS).Msg("receiving")
				case pipeline.EventError:
					log.Warn().Err(ev.Err).Msg("receiver error")
				}
			case <-recv.Done():
				server.Publish(pipeline.Event{Kind: pipeline.EventSessionEnded})
				return
			}
		}
	}()

	log.Info().
		Str("preview", fmt.Sprintf("http://localhost:%d/stream", cfg.ServerPort)).
		Msg("receiver running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("interrupt received, stopping")
		recv.Stop()
	case <-recv.Done():
		log.Info().Msg("session ended")
		return fmt.Errorf("receive session ended on error")
	}
	return nil
}
