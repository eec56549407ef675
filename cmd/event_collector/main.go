// Event collector reads controller events from the serial port, stores them
// and serves the operator menu on the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NotCoffee418/serial_event_log/pkg/collector"
	"github.com/NotCoffee418/serial_event_log/pkg/config"
	"github.com/NotCoffee418/serial_event_log/pkg/logger"
	"github.com/NotCoffee418/serial_event_log/pkg/pathing"
	"github.com/NotCoffee418/serial_event_log/pkg/port_reader"
)

type options struct {
	configPath string
	device     string
	baudrate   uint
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "event_collector",
		Short:         "Collect controller events from a serial port",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, "event_collector:", err)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default "+pathing.GetConfigPath()+")")
	cmd.Flags().StringVar(&opts.device, "device", "", "serial device, overrides the config")
	cmd.Flags().UintVar(&opts.baudrate, "baud", 0, "baud rate, overrides the config")

	return cmd
}

func run(opts *options) error {
	if err := pathing.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	// Load config
	if err := config.LoadCollectorConfig(opts.configPath); err != nil {
		return fmt.Errorf("failed to load collector config: %w", err)
	}
	cfg := config.ActiveCollectorConfig
	if opts.device != "" {
		cfg.SerialDevice = opts.device
	}
	if opts.baudrate != 0 {
		cfg.Baudrate = opts.baudrate
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	port, err := port_reader.Open(cfg.SerialDevice, cfg.Baudrate)
	if err != nil {
		log.Error("Serial port unavailable", zap.Error(err))
		return err
	}
	log.Info("Connected to serial port",
		zap.String("device", cfg.SerialDevice),
		zap.Uint("baudrate", cfg.Baudrate))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := collector.New(ctx, collector.Options{
		Config:  cfg,
		Source:  port,
		Console: os.Stdin,
		Out:     os.Stdout,
		Log:     log,
	})
	if err != nil {
		port.Close()
		log.Error("Failed to start collector", zap.Error(err))
		return err
	}

	return c.Run()
}
