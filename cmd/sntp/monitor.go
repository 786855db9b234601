package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"

	"github.com/AndrewLester/sntp/internal/monitor"
)

const defaultConfigPath = "/etc/sntpmon.yml"

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Periodically sample configured servers and log the offsets",
	Long: "Runs a daemon that polls each configured server on an interval and " +
		"records clock offset samples. It never adjusts the system clock. " +
		"Invoking monitor while the daemon is running stops it.",
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().String("config", defaultConfigPath, "Path to the monitor config file.")
	monitorCmd.Flags().Bool("foreground", false, "Don't daemonize; log to stderr.")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	foreground, _ := cmd.Flags().GetBool("foreground")

	config, err := monitor.ParseConfig(configPath)
	if err != nil {
		return err
	}

	if foreground {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		return monitorLoop(config, logger)
	}

	child, err := daemonCtx.Reborn()
	if err != nil {
		if errors.Is(err, daemon.ErrWouldBlock) {
			if err := killDaemon(); err != nil {
				return err
			}
			fmt.Printf("Successfully stopped %s.\n", daemonName)
			return nil
		}
		return fmt.Errorf("unable to run: %w", err)
	}
	if child != nil {
		fmt.Printf("Daemon process (%s, %d) started successfully.\n", daemonName, child.Pid)
		return nil
	}
	defer daemonCtx.Release()

	// Stderr is redirected to the daemon's log file by go-daemon.
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return monitorLoop(config, logger)
}

func monitorLoop(config monitor.Config, logger zerolog.Logger) error {
	m := monitor.New(config, logger)

	rpcServer := &monitor.RPCServer{Socket: config.Socket, Monitor: m}
	go func() {
		if err := rpcServer.Listen(); err != nil {
			logger.Fatal().Err(err).Str("socket", config.Socket).Msg("rpc listen failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Strs("servers", config.Servers).Msg("monitor started")
	m.Run(ctx)
	logger.Info().Msg("monitor stopped")
	return nil
}
