package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# style name or JSON path for log payloads (default "auto")
style: "auto"
# mouse support
mouse: false
# word-wrap log payloads at width
width: 80
# write debug output to the log file
debug: false

gateway:
  # base URL of the TTS gateway
  url: "http://localhost:8080"
  speech_path: "/v1/audio/speech"
  # prefix of the admin REST API (providers, statistics)
  admin_path: "/admin"
  timeout: "60s"

# initial values of the demo form
demo:
  text: "Hello, this is a test of the TTS Gateway system."
  voice: "aliyun"
  # provider hint; empty selects the first provider the gateway lists
  model: ""
  extra_body: '{"emotion": "happy"}'

audio:
  enabled: true
  # start playback as soon as a clip is ready
  autoplay: true
  # output rate: 44100 or 48000
  sample_rate: 44100
  # 0.0 to 1.0
  volume: 1.0

session:
  # where the login token is kept (default: user data directory)
  # file: "~/.local/share/ttsconsole/session"

metrics:
  # serve Prometheus metrics, e.g. "127.0.0.1:9464"
  addr: ""
`

// envKeyReplacer maps nested keys to environment variables, e.g.
// gateway.url to TTSCONSOLE_GATEWAY_URL.
var envKeyReplacer = strings.NewReplacer(".", "_")

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the ttsconsole config file",
	Long:    paragraph(fmt.Sprintf("\n%s the ttsconsole config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("ttsconsole config\nttsconsole config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("ttsconsole", configFile)
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
	}
	return writeDefaultConfig(configFile)
}

// writeDefaultConfig creates the config file at p with the default content
// unless it already exists.
func writeDefaultConfig(p string) error {
	if ext := path.Ext(p); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	_, err := os.Stat(p)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("unable to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("unable create directory: %w", err)
	}
	if err := os.WriteFile(p, []byte(defaultConfig), 0o600); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	return nil
}
