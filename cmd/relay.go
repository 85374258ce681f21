package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/almostacms/almostacms/internal/config"
	"github.com/almostacms/almostacms/internal/flags"
	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/relay"
	"github.com/almostacms/almostacms/internal/tracing"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the OAuth code-exchange relay",
	Long: `Run the HTTP service that exchanges GitHub OAuth authorization codes for
access tokens on behalf of the browser editor, so the client secret never
reaches the browser.

Credentials come from the environment (a .env file is honored):
  GITHUB_CLIENT_ID       OAuth app client id
  GITHUB_CLIENT_SECRET   OAuth app client secret
  ALLOWED_ORIGINS        comma-separated origins allowed to call the relay
  PORT                   listen port (overrides relay.addr)

Example:
  almostacms relay                  # listen on :3001
  almostacms relay --addr :8080
  PORT=4000 almostacms relay`,
	RunE: runRelay,
}

var (
	relayAddr     string
	relayEnvFile  string
	relayLogLevel string
)

func init() {
	rootCmd.AddCommand(relayCmd)

	relayCmd.Flags().StringVar(&relayAddr, "addr", "", "address to listen on (overrides config and PORT)")
	relayCmd.Flags().StringVar(&relayEnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	relayCmd.Flags().StringVar(&relayLogLevel, "log-level", "info", "stderr log level: debug, info, warn or error")
}

// loadEnvFile loads a dotenv file. A missing file is not an error; variables
// already set in the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// relayConfig merges the relay config section with the process environment.
func relayConfig(c config.Config, env *viper.Viper) relay.Config {
	rc := relay.Config{
		Addr:           c.Relay.Addr,
		ClientID:       env.GetString("GITHUB_CLIENT_ID"),
		ClientSecret:   env.GetString("GITHUB_CLIENT_SECRET"),
		AllowedOrigins: c.Relay.AllowedOrigins,
		ReadTimeout:    c.Relay.ReadTimeout,
		RPS:            c.Relay.RateLimit.RPS,
		Burst:          c.Relay.RateLimit.Burst,
		DeviceProxy:    flags.New(c.Flags).Enabled(flags.FlagDeviceProxy),
	}
	if rc.ClientID == "" {
		rc.ClientID = c.GitHub.ClientID
	}
	if origins := env.GetString("ALLOWED_ORIGINS"); origins != "" {
		rc.AllowedOrigins = relay.ParseOrigins(origins)
	}
	if port := env.GetString("PORT"); port != "" {
		rc.Addr = ":" + port
	}
	return rc
}

// relayEnv binds the relay's unprefixed environment variables.
func relayEnv() *viper.Viper {
	env := viper.New()
	for _, k := range []string{"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "ALLOWED_ORIGINS", "PORT"} {
		_ = env.BindEnv(k)
	}
	return env
}

func runRelay(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFile(relayEnvFile); err != nil {
		return err
	}

	if debugFlag || os.Getenv("ALMOSTACMS_DEBUG") != "" {
		cleanup, err := initLogging("almostacms-relay")
		if err != nil {
			return err
		}
		defer cleanup()
	} else {
		defer log.InitWriter(os.Stderr, log.ParseLevel(relayLogLevel))()
	}

	if err := config.ValidateRelay(cfg.Relay); err != nil {
		return fmt.Errorf("invalid relay configuration: %w", err)
	}
	rc := relayConfig(cfg, relayEnv())
	if relayAddr != "" {
		rc.Addr = relayAddr
	}
	if !rc.HasCredentials() {
		log.Warn(log.CatRelay, "GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET is not set; token exchanges will fail")
	}
	if len(rc.AllowedOrigins) == 0 {
		log.Warn(log.CatRelay, "ALLOWED_ORIGINS is empty; browsers will be refused")
	}

	tc := cfg.TracingConfig()
	tc.ServiceName = tracing.DefaultServiceName + "-relay"
	tp, err := tracing.NewProvider(tc)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	server, err := relay.NewServer(rc, relay.WithTracer(tp.Tracer()))
	if err != nil {
		return fmt.Errorf("creating relay server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "OAuth relay listening on port %d\n", server.Port())
	fmt.Fprintf(cmd.OutOrStdout(), "Allowed origins: %v\n", rc.AllowedOrigins)

	select {
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.ErrorErr(log.CatRelay, "error stopping relay", err)
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Relay stopped")
	return nil
}
