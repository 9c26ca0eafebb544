package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# backend: auto, announcement, engine, or a backend name
backend: "auto"
# how long to wait for a speech engine to come up
init_timeout: "10s"
# log debug output to stderr
debug: false

# Screen reader announcements (Orca)
announce:
  # pad repeated messages so the screen reader speaks them again
  suppress_duplicates: false
  dbus_dest: "org.gnome.Orca.Service"
  timeout: "2s"

# Speech engine (Speech Dispatcher)
engine:
  # utterances are split at sentence boundaries after this many characters
  soft_limit: 512
  binary: "spd-say"
  # output module, e.g. espeak-ng (empty uses the server default)
  module: ""
  # voice id (empty picks one for the language)
  voice: ""
  # language tag, e.g. en-US (empty uses the system locale)
  language: ""
  # 1.0 is normal, 0.1 to 4.0
  rate: 1.0
  pitch: 1.0
  # 0.0 to 1.0
  volume: 1.0
  timeout: "5s"

# narrate listen
listen:
  # minimum time between spoken lines
  min_interval: "250ms"
  # serve prometheus metrics here, e.g. "localhost:9464"
  metrics_addr: ""
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the narrate config file",
	Long:    paragraph(fmt.Sprintf("\n%s the narrate config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("narrate config\nnarrate config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	// an invalid config must stay editable
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		if configFile != "" {
			configFile = expandPath(configFile)
		}
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Narrate", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
