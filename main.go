// Package main provides the entry point for the narrate CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/narrate/tts"
	"github.com/dgnsrekt/narrate/tts/engines"
	"github.com/dgnsrekt/narrate/tts/engines/builtin"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile    string
	cfg           tts.Config
	interrupt     bool
	wait          bool
	fromClipboard bool
	fromFile      string
	markdown      bool

	rootCmd = &cobra.Command{
		Use:   "narrate [TEXT|-]",
		Short: "Speak text through your screen reader or speech engine",
		Long: paragraph(
			fmt.Sprintf("\nSpeak text through %s: your screen reader when it runs, a speech engine otherwise.", keyword("whatever the desktop offers")),
		),
		Example:          paragraph("narrate \"Build finished\"\nnarrate -i -b engine \"Stop everything\"\nnarrate --markdown -f README.md\nmake 2>&1 | tail -1 | narrate"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		RunE:             execute,
	}
)

// loadConfig reads the merged viper settings into cfg.
func loadConfig() error {
	if rootCmd.PersistentFlags().Changed("config") {
		configFile = expandPath(configFile)
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	c, err := tts.LoadConfigFromViper()
	if err != nil {
		return err //nolint:wrapcheck
	}
	cfg = c
	if cfg.Debug {
		debugLog()
	}
	log.Debug("Loaded configuration", "backend", cfg.Backend, "file", viper.ConfigFileUsed())
	return nil
}

// openBackend selects and initializes the configured backend.
func openBackend(choice string) (tts.Backend, error) {
	registry := builtin.NewRegistry(cfg, true)
	host := builtin.NewHost(cfg, nil)

	b, err := builtin.Select(registry, host, choice)
	if err != nil {
		return nil, fmt.Errorf("no speech backend for %q: %w", choice, err)
	}
	log.Debug("Using backend", "name", b.Name(), "kind", b.Kind())

	if query := viper.GetString("voice"); query != "" {
		if err := selectVoice(b, query); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// selectVoice switches to the voice best matching query.
func selectVoice(b tts.Backend, query string) error {
	vc, ok := b.(tts.VoiceController)
	if !ok {
		log.Warn("Backend has no voices to choose from", "backend", b.Name())
		return nil
	}
	voices, err := vc.Voices()
	if err != nil {
		return fmt.Errorf("unable to list voices: %w", err)
	}
	v, ok := engines.FindVoice(voices, query)
	if !ok {
		return fmt.Errorf("no voice matches %q", query)
	}
	if err := vc.SetVoice(v.ID); err != nil {
		return fmt.Errorf("unable to select voice %q: %w", v.ID, err)
	}
	return nil
}

func execute(cmd *cobra.Command, args []string) error {
	pipe, err := stdinIsPipe()
	if err != nil {
		return err
	}

	text, err := readText(args, sourceOptions{
		clipboard: fromClipboard,
		file:      fromFile,
		stdinPipe: pipe,
	}, markdown)
	if errors.Is(err, errNoText) && len(args) == 0 && !pipe && fromFile == "" && !fromClipboard {
		return cmd.Help()
	}
	if err != nil {
		return err
	}

	b, err := openBackend(cfg.Backend)
	if err != nil {
		return err
	}

	if err := b.Speak(tts.NewRequest(text, interrupt)); err != nil {
		return fmt.Errorf("unable to speak: %w", err)
	}

	if wait {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return waitForSpeech(ctx, b)
	}
	return nil
}

// waitForSpeech blocks until the backend goes quiet. Cancelling ctx stops
// the speech. Backends that cannot report speech return at once.
func waitForSpeech(ctx context.Context, b tts.Backend) error {
	monitor, ok := b.(tts.SpeechMonitor)
	if !ok {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		speaking, err := monitor.IsSpeaking()
		if err != nil {
			return fmt.Errorf("unable to query speech: %w", err)
		}
		if !speaking {
			return nil
		}

		select {
		case <-ctx.Done():
			if err := b.Stop(); err != nil {
				return fmt.Errorf("unable to stop speech: %w", err)
			}
			return nil
		case <-ticker.C:
		}
	}
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	// Assigned here rather than in the rootCmd literal to avoid an
	// initialization cycle (loadConfig refers to rootCmd).
	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		return loadConfig()
	}

	tts.SetDefaults()
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	// persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	flags.StringP("backend", "b", tts.BackendAuto, "backend: auto, announcement, engine or a backend name")
	flags.String("voice", "", "voice id or name to speak with (engine only)")
	flags.Float32("rate", 1.0, "speech rate, 1.0 is normal (engine only)")
	flags.Float32("pitch", 1.0, "voice pitch, 1.0 is normal (engine only)")
	flags.Float32("volume", 1.0, "volume between 0 and 1 (engine only)")
	flags.Bool("debug", false, "log debug output to stderr")

	// speak flags
	rootCmd.Flags().BoolVarP(&interrupt, "interrupt", "i", false, "stop current speech first")
	rootCmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait until speech has finished")
	rootCmd.Flags().BoolVarP(&fromClipboard, "clipboard", "c", false, "speak the clipboard contents")
	rootCmd.Flags().StringVarP(&fromFile, "file", "f", "", "speak the contents of a file")
	rootCmd.Flags().BoolVarP(&markdown, "markdown", "m", false, "read the input as markdown")

	// Config bindings
	_ = viper.BindPFlag("backend", flags.Lookup("backend"))
	_ = viper.BindPFlag("voice", flags.Lookup("voice"))
	_ = viper.BindPFlag("engine.voice", flags.Lookup("voice"))
	_ = viper.BindPFlag("engine.rate", flags.Lookup("rate"))
	_ = viper.BindPFlag("engine.pitch", flags.Lookup("pitch"))
	_ = viper.BindPFlag("engine.volume", flags.Lookup("volume"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))

	rootCmd.AddCommand(configCmd, manCmd, backendsCmd, voicesCmd, listenCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "narrate")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "narrate")}, dirs...)
	}

	if c := os.Getenv("NARRATE_CONFIG_HOME"); c != "" {
		dirs = append([]string{expandPath(c)}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("narrate")
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "narrate.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
