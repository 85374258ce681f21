package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/almostacms/almostacms/internal/config"
	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/ui/editor"
	"github.com/almostacms/almostacms/internal/watcher"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const localConfigPath = ".almostacms/config.yaml"

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "almostacms",
	Short: "Edit a static site's content from the terminal",
	Long: `AlmostaCMS edits the JSON data files of a static site.

Sections listed in the site's .almostacms.json are loaded into forms built
from their documents. Saves go to the local checkout, or to GitHub when the
github-persistence flag is on. The relay subcommand runs the OAuth
code-exchange service used by the browser editor.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runEdit,
}

var editCmd = &cobra.Command{
	Use:   "edit [site-dir]",
	Short: "Open the content editor (default command)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEdit,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .almostacms/config.yaml or ~/.config/almostacms/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug logs (path from ALMOSTACMS_LOG, default debug.log)")
	rootCmd.PersistentFlags().StringP("site", "s", "",
		"site checkout directory (default: current directory)")
	rootCmd.PersistentFlags().String("base-path", "",
		"path the site is served from, for manifest discovery")
	rootCmd.PersistentFlags().String("url", "",
		"read a published site over HTTP instead of a checkout (read-only)")
	for _, c := range []*cobra.Command{rootCmd, editCmd} {
		c.Flags().Bool("no-auto-refresh", false,
			"do not reload sections when their files change on disk")
	}

	_ = viper.BindPFlag("site.root", rootCmd.PersistentFlags().Lookup("site"))
	_ = viper.BindPFlag("site.base_path", rootCmd.PersistentFlags().Lookup("base-path"))
	_ = viper.BindPFlag("site.url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.AddCommand(editCmd)
}

func initConfig() {
	setDefaults(viper.GetViper(), config.Defaults())

	viper.SetEnvPrefix("ALMOSTACMS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .almostacms/config.yaml (current directory)
		// 2. ~/.config/almostacms/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			viper.AddConfigPath(config.ConfigDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if writeErr := config.WriteDefaultConfig(localConfigPath); writeErr == nil {
				viper.SetConfigFile(localConfigPath)
				_ = viper.ReadInConfig()
			}
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// setDefaults registers every default so AutomaticEnv can see the keys and
// Unmarshal fills sections missing from the file.
func setDefaults(v *viper.Viper, d config.Config) {
	v.SetDefault("site.root", d.Site.Root)
	v.SetDefault("site.base_path", d.Site.BasePath)
	v.SetDefault("site.url", d.Site.URL)
	v.SetDefault("github.owner", d.GitHub.Owner)
	v.SetDefault("github.repo", d.GitHub.Repo)
	v.SetDefault("github.branch", d.GitHub.Branch)
	v.SetDefault("github.repo_path", d.GitHub.RepoPath)
	v.SetDefault("github.client_id", d.GitHub.ClientID)
	v.SetDefault("github.token_file", d.GitHub.TokenFile)
	v.SetDefault("github.api_url", d.GitHub.APIURL)
	v.SetDefault("relay.addr", d.Relay.Addr)
	v.SetDefault("relay.allowed_origins", d.Relay.AllowedOrigins)
	v.SetDefault("relay.read_timeout", d.Relay.ReadTimeout)
	v.SetDefault("relay.rate_limit.rps", d.Relay.RateLimit.RPS)
	v.SetDefault("relay.rate_limit.burst", d.Relay.RateLimit.Burst)
	v.SetDefault("drafts.enabled", d.Drafts.Enabled)
	v.SetDefault("drafts.path", d.Drafts.Path)
	v.SetDefault("ui.show_descriptions", d.UI.ShowDescriptions)
	v.SetDefault("ui.markdown_style", d.UI.MarkdownStyle)
	v.SetDefault("ui.confirm_remove", d.UI.ConfirmRemove)
	v.SetDefault("auto_refresh", d.AutoRefresh)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// initLogging turns on the file logger when --debug or ALMOSTACMS_DEBUG is
// set. The returned cleanup is always safe to call.
func initLogging(prefix string) (func(), error) {
	if !debugFlag && os.Getenv("ALMOSTACMS_DEBUG") == "" {
		return func() {}, nil
	}
	logPath := os.Getenv("ALMOSTACMS_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}
	cleanup, err := log.InitWithTeaLog(logPath, prefix)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	log.Info(log.CatConfig, "AlmostaCMS starting", "version", version, "logPath", logPath, "config", viper.ConfigFileUsed())
	return cleanup, nil
}

// configFilePath is where UI toggles are persisted.
func configFilePath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	return localConfigPath
}

func runEdit(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg.Site.Root = args[0]
	}
	if noAutoRefresh, _ := cmd.Flags().GetBool("no-auto-refresh"); noAutoRefresh {
		cfg.AutoRefresh = false
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cleanup, err := initLogging("almostacms")
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	ws, err := openWorkspace(ctx, cfg)
	if err != nil {
		return err
	}
	defer ws.Close()

	loaded, warnings, err := ws.loadSections(ctx)
	if err != nil {
		return err
	}

	edCfg := editor.Config{
		Loader:           ws.loader,
		Sections:         loaded,
		Warnings:         warnings,
		AutoRefresh:      cfg.AutoRefresh,
		SiteKey:          ws.siteKey,
		ShowDescriptions: cfg.UI.ShowDescriptions,
		ConfirmRemove:    cfg.UI.ConfirmRemove,
		MarkdownStyle:    cfg.UI.MarkdownStyle,
		ConfigPath:       configFilePath(),
	}
	if ws.drafts != nil {
		edCfg.Drafts = ws.drafts
	}

	// Only a local checkout can be watched.
	if cfg.AutoRefresh && ws.localRoot != "" {
		w, err := watcher.New(watcher.DefaultConfig(ws.localRoot))
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			log.ErrorErr(log.CatWatcher, "auto-refresh disabled", err)
		} else {
			defer func() { _ = w.Stop() }()
			edCfg.Changes = w.Broker()
		}
	}

	model := editor.New(edCfg)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if m, ok := final.(editor.Model); ok {
		m.Close()
	} else {
		model.Close()
	}
	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// absPath is used in status output so users see where files went.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
