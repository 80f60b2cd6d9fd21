package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	// Initial form values
	Text      string
	Voice     string
	Model     string
	ExtraBody string

	GlamourMaxWidth uint
	GlamourStyle    string `env:"GLAMOUR_STYLE"`
	EnableMouse     bool

	// Where the session token lives; watched for logins from other shells.
	SessionFile string

	// For debugging the UI
	SampleInterval time.Duration `env:"TTSCONSOLE_SAMPLE_INTERVAL" envDefault:"100ms"`
	GlamourEnabled bool          `env:"TTSCONSOLE_ENABLE_GLAMOUR"  envDefault:"true"`
	LogHeight      int           `env:"TTSCONSOLE_LOG_HEIGHT"      envDefault:"8"`
}
