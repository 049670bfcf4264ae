package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/wirecast/internal/capture"
	"github.com/bryanchriswhite/wirecast/internal/config"
	"github.com/bryanchriswhite/wirecast/internal/encoder"
	"github.com/bryanchriswhite/wirecast/internal/logger"
	"github.com/bryanchriswhite/wirecast/internal/pipeline"
	"github.com/bryanchriswhite/wirecast/internal/transport"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Capture the screen and stream it over the serial port",
	Long: `Capture the local screen, encode each frame as JPEG, and stream the
frames over the serial port as length-prefixed envelopes at the target rate.

Runs until interrupted or until the serial link fails.`,
	Example: `  # Stream with defaults (/dev/ttyGS0, 1280x720 @ 15fps, quality 60)
  wirecast send

  # Stream over a specific port at a lower rate
  wirecast send --port /dev/ttyUSB0 --fps 10

  # Trade quality for bandwidth
  wirecast send --quality 40 --width 960 --height 540`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().String("port", "", "serial port to write to")
	sendCmd.Flags().Int("baud", 0, "serial baud rate")
	sendCmd.Flags().Int("fps", 0, "target frames per second")
	sendCmd.Flags().Int("quality", 0, "JPEG quality (1-100)")
	sendCmd.Flags().Int("width", 0, "output frame width")
	sendCmd.Flags().Int("height", 0, "output frame height")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.WithComponent("send")
	log.Info().
		Str("port", cfg.Port).
		Int("baud_rate", cfg.BaudRate).
		Int("target_fps", cfg.TargetFPS).
		Int("quality", cfg.Quality).
		Str("resolution", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)).
		Msg("starting sender")

	cap, err := capture.NewX11Capturer()
	if err != nil {
		return fmt.Errorf("failed to initialize screen capture: %w", err)
	}

	enc := encoder.NewJPEGEncoder(cfg.Quality, cfg.Width, cfg.Height)

	dial := func() (transport.Conn, error) {
		return transport.OpenSerial(transport.SerialOptions{
			Port:        cfg.Port,
			BaudRate:    cfg.BaudRate,
			ReadTimeout: cfg.ReadTimeout,
		})
	}

	sender := pipeline.NewSender(cfg, cap, enc, dial)
	if err := sender.Start(); err != nil {
		return err
	}

	go func() {
		for ev := range sender.Events() {
			if ev.Kind == pipeline.EventError {
				log.Error().Err(ev.Err).Msg("sender error")
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("interrupt received, stopping")
		sender.Stop()
	case <-sender.Done():
		log.Info().Msg("session ended")
		return fmt.Errorf("streaming session ended on error")
	}
	return nil
}

// loadConfig builds the effective configuration from the config file plus
// any flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := configMgr.Get()

	if viper.IsSet("log_level") {
		if lvl := viper.GetString("log_level"); lvl != "" {
			cfg.LogLevel = lvl
		}
	}
	logger.Init(cfg.LogLevel, true)

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetString("port")
	}
	if flags.Changed("baud") {
		cfg.BaudRate, _ = flags.GetInt("baud")
	}
	if flags.Changed("fps") {
		cfg.TargetFPS, _ = flags.GetInt("fps")
	}
	if flags.Changed("quality") {
		cfg.Quality, _ = flags.GetInt("quality")
	}
	if flags.Changed("width") {
		cfg.Width, _ = flags.GetInt("width")
	}
	if flags.Changed("height") {
		cfg.Height, _ = flags.GetInt("height")
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout, _ = flags.GetDuration("read-timeout")
	}
	if flags.Changed("max-frame-bytes") {
		v, _ := flags.GetUint32("max-frame-bytes")
		cfg.MaxFrameBytes = v
	}
	if flags.Changed("server-port") {
		cfg.ServerPort, _ = flags.GetInt("server-port")
	}
	if flags.Changed("screenshot-dir") {
		cfg.ScreenshotDir, _ = flags.GetString("screenshot-dir")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
