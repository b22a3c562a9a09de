package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/slackqa/internal/logging"
	"github.com/hrygo/slackqa/internal/profile"
	"github.com/hrygo/slackqa/internal/version"
	"github.com/hrygo/slackqa/server"
)

var (
	rootCmd = &cobra.Command{
		Use:   "slackqa",
		Short: `A Slack Q&A memory bridge. Stores answered questions, finds similar ones and posts formatted replies.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// Under systemd the environment comes from the unit file.
			if !isRunningAsSystemdService() {
				_ = godotenv.Load()
			}
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			instanceProfile := loadProfile()
			logging.Setup(instanceProfile.LogLevel)
			if err := instanceProfile.Validate(); err != nil {
				slog.Error("invalid configuration", "error", err)
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), terminationSignals...)
			defer stop()

			s, err := server.NewServer(ctx, instanceProfile)
			if err != nil {
				slog.Error("failed to create server", "error", err)
				return err
			}

			printGreetings(instanceProfile)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := s.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				s.Shutdown(context.Background())
				return nil
			})
			return g.Wait()
		},
		SilenceUsage: true,
	}
)

func init() {
	viper.SetDefault("mode", "dev")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 0, "port of server, defaults to $PORT or 8080")
	rootCmd.PersistentFlags().String("log-level", "", "log level, defaults to $LOG_LEVEL or INFO")

	for _, name := range []string{"mode", "addr", "port", "log-level"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("slackqa")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Unprefixed names used by hosting platforms. SLACKQA_* still wins.
	for key, env := range map[string]string{"port": "PORT", "mode": "MODE", "log-level": "LOG_LEVEL"} {
		if err := viper.BindEnv(key, env); err != nil {
			panic(err)
		}
	}
}

// loadProfile resolves flags and environment into a profile. A zero port or
// empty log level is filled by FromEnv.
func loadProfile() *profile.Profile {
	mode := viper.GetString("mode")
	p := &profile.Profile{
		Mode:     mode,
		Addr:     viper.GetString("addr"),
		Port:     viper.GetInt("port"),
		LogLevel: viper.GetString("log-level"),
		Version:  version.GetCurrentVersion(mode),
	}
	p.FromEnv()
	return p
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("slackqa %s started successfully!\n", profile.Version)
	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}
	fmt.Printf("Datastore driver: %s\n", profile.DatastoreDriver)
	fmt.Printf("Embedding provider: %s (dim %d)\n", profile.EmbeddingProvider, profile.EmbeddingDim)
	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
