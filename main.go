// Package main provides the entry point for the ttsconsole CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttsconsole/internal/metrics"
	"github.com/dgnsrekt/ttsconsole/ui"
	"github.com/dgnsrekt/ttsconsole/utils"
	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	style      string
	width      uint
	mouse      bool
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "ttsconsole",
		Short: "Try a speech-synthesis gateway from the terminal",
		Long: paragraph(
			fmt.Sprintf("\nSend synthesis requests to a TTS gateway, %s, and watch every call in the network log.", keyword("play the audio")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context())
		},
	}
)

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != "auto" && styles.DefaultStyles[style] == nil {
		style = utils.ExpandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(utils.ExpandPath(configFile))
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}
	if noAudio, _ := cmd.Flags().GetBool("no-audio"); noAudio {
		viper.Set("audio.enabled", false)
	}

	// grab config values from Viper
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	debug = viper.GetBool("debug")
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := gatewayConfigValid(); err != nil {
		return err
	}

	// validate the glamour style
	style = viper.GetString("style")
	if err := validateStyle(style); err != nil {
		return err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if !isTerminal && !cmd.Flags().Changed("style") {
		style = "notty"
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") { //nolint:nestif
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}

			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

// gatewayConfigValid checks the configured gateway before any call is made.
func gatewayConfigValid() error {
	if viper.GetDuration("gateway.timeout") < 0 {
		return fmt.Errorf("gateway timeout must not be negative, got %s", viper.GetDuration("gateway.timeout"))
	}
	if v := viper.GetFloat64("audio.volume"); v < 0 || v > 1 {
		return fmt.Errorf("audio volume must be between 0.0 and 1.0, got %.2f", v)
	}
	switch r := viper.GetInt("audio.sample_rate"); r {
	case 0, 44100, 48000:
	default:
		return fmt.Errorf("audio sample rate must be 44100 or 48000 Hz, got %d", r)
	}
	return nil
}

func runTUI(ctx context.Context) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	// use style set in env, or auto if unset
	if err := validateStyle(cfg.GlamourStyle); err != nil {
		cfg.GlamourStyle = style
	}

	cfg.GlamourMaxWidth = width
	cfg.EnableMouse = mouse
	cfg.Text = viper.GetString("demo.text")
	cfg.Voice = viper.GetString("demo.voice")
	cfg.Model = viper.GetString("demo.model")
	cfg.ExtraBody = viper.GetString("demo.extra_body")

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("unable to release audio", "error", err)
		}
	}()
	cfg.SessionFile = a.sessionFile

	if addr := viper.GetString("metrics.addr"); addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, a.registry); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
	}

	deps := ui.Deps{
		Runner:    a.runner,
		Providers: a.client,
		Log:       a.log,
		Player:    a.player,
		Session:   a.session,
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(ctx, cfg, deps).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}

	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = rootCmd.ExecuteContext(ctx)
	stop()
	_ = closer()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// .env in the working directory, if any
	_ = godotenv.Load()

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

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output to the log file")
	rootCmd.PersistentFlags().String("gateway", "", "gateway base URL")
	rootCmd.PersistentFlags().Bool("no-audio", false, "disable audio output")
	rootCmd.Flags().StringVarP(&style, "style", "s", styles.AutoStyle, "style name or JSON path for log payloads")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap log payloads at width (set to 0 to disable)")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")
	rootCmd.Flags().String("voice", "", "initial voice ID")
	rootCmd.Flags().String("model", "", "initial provider hint")

	// Config bindings
	_ = viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("gateway.url", rootCmd.PersistentFlags().Lookup("gateway"))
	_ = viper.BindPFlag("demo.voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("demo.model", rootCmd.Flags().Lookup("model"))

	setDefaults()

	rootCmd.AddCommand(configCmd, manCmd, sayCmd, providersCmd, statsCmd, loginCmd, logoutCmd)
}

func setDefaults() {
	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("width", 0)

	viper.SetDefault("gateway.url", "http://localhost:8080")
	viper.SetDefault("gateway.speech_path", "/v1/audio/speech")
	viper.SetDefault("gateway.admin_path", "/admin")
	viper.SetDefault("gateway.timeout", "60s")

	viper.SetDefault("demo.text", "Hello, this is a test of the TTS Gateway system.")
	viper.SetDefault("demo.voice", "aliyun")
	viper.SetDefault("demo.model", "")
	viper.SetDefault("demo.extra_body", `{"emotion": "happy"}`)

	viper.SetDefault("audio.enabled", true)
	viper.SetDefault("audio.autoplay", true)
	viper.SetDefault("audio.sample_rate", 44100)
	viper.SetDefault("audio.volume", 1.0)

	viper.SetDefault("session.file", "")
	viper.SetDefault("metrics.addr", "")
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "ttsconsole")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "ttsconsole")}, dirs...)
	}

	if c := os.Getenv("TTSCONSOLE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("ttsconsole")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("ttsconsole")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

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
		configFile = filepath.Join(dirs[0], "ttsconsole.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
