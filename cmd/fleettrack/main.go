package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fleettrack/internal/app"
	"fleettrack/internal/config"
	"fleettrack/internal/db"
	"fleettrack/internal/logging"
	"fleettrack/internal/repository"
	"fleettrack/internal/tracking"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fleettrack",
		Short: "Fleet position tracking, status derivation and alerting",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scanCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serveCmd runs the tracking service.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tracking service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger, err := logging.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			application, err := app.New(cfg, logger)
			if err != nil {
				logger.Error("failed to init application", zap.Error(err))
				return err
			}
			defer application.Close()

			if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("application stopped with error", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

// scanCmd runs the alert detector over a historical window and prints
// the findings.
func scanCmd() *cobra.Command {
	var (
		vehicleID   string
		fromStr     string
		toStr       string
		speedLimit  float64
		stopMinutes int
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a historical telemetry window for alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			to := time.Now().UTC()
			if toStr != "" {
				if to, err = time.Parse(time.RFC3339, toStr); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}
			from := to.Add(-24 * time.Hour)
			if fromStr != "" {
				if from, err = time.Parse(time.RFC3339, fromStr); err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
			}

			sqlDB, err := db.NewPostgres(cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			positions := repository.NewPositionRepository(sqlDB)
			reconstructor := tracking.NewReconstructor(positions, speedLimit)

			trajectory, err := reconstructor.Reconstruct(cmd.Context(), vehicleID, from, to)
			if err != nil {
				return err
			}
			alerts := tracking.Scan(trajectory.Positions, tracking.AlertConfig{
				SpeedLimitKmh: speedLimit,
				ProlongedStop: time.Duration(stopMinutes) * time.Minute,
			})

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(map[string]interface{}{
				"vehicle_id": vehicleID,
				"summary":    trajectory.Summary,
				"alerts":     alerts,
			})
		},
	}

	cmd.Flags().StringVar(&vehicleID, "vehicle", "", "Vehicle id to scan")
	cmd.Flags().StringVar(&fromStr, "from", "", "Window start (RFC3339, default 24h ago)")
	cmd.Flags().StringVar(&toStr, "to", "", "Window end (RFC3339, default now)")
	cmd.Flags().Float64Var(&speedLimit, "speed-limit", tracking.DefaultSpeedLimitKmh, "Speed limit in km/h")
	cmd.Flags().IntVar(&stopMinutes, "stop-minutes", 120, "Prolonged stop threshold in minutes")
	_ = cmd.MarkFlagRequired("vehicle")

	return cmd
}
