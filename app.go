package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttsconsole/internal/activity"
	"github.com/dgnsrekt/ttsconsole/internal/attempt"
	"github.com/dgnsrekt/ttsconsole/internal/audio"
	"github.com/dgnsrekt/ttsconsole/internal/gateway"
	"github.com/dgnsrekt/ttsconsole/internal/metrics"
	"github.com/dgnsrekt/ttsconsole/internal/session"
	"github.com/dgnsrekt/ttsconsole/internal/waveform"
	"github.com/dgnsrekt/ttsconsole/utils"
	gap "github.com/muesli/go-app-paths"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

// app holds the services shared by the demo and the subcommands.
type app struct {
	sessionFile string
	session     *session.Session
	client      *gateway.Client
	log         *activity.Log
	registry    *prometheus.Registry
	recorder    *metrics.Recorder
	runner      *attempt.Runner

	output audio.Output
	player *waveform.Player
}

// sessionFilePath returns the configured session file, or the default one
// in the user data directory.
func sessionFilePath() (string, error) {
	if p := viper.GetString("session.file"); p != "" {
		return utils.ExpandPath(p), nil
	}
	p, err := gap.NewScope(gap.User, "ttsconsole").DataPath("session")
	if err != nil {
		return "", fmt.Errorf("unable to find data directory: %w", err)
	}
	return filepath.Clean(p), nil
}

func gatewayConfig() gateway.Config {
	cfg := gateway.DefaultConfig()
	if v := viper.GetString("gateway.url"); v != "" {
		cfg.BaseURL = v
	}
	if v := viper.GetString("gateway.speech_path"); v != "" {
		cfg.SpeechPath = v
	}
	if v := viper.GetString("gateway.admin_path"); v != "" {
		cfg.AdminPath = v
	}
	if viper.IsSet("gateway.timeout") {
		cfg.Timeout = viper.GetDuration("gateway.timeout")
	}
	return cfg
}

// newSession opens the session stored on disk.
func newSession() (*session.Session, string, error) {
	path, err := sessionFilePath()
	if err != nil {
		return nil, "", err
	}
	s, err := session.New(session.NewFileStore(path))
	if err != nil {
		return nil, "", fmt.Errorf("unable to load session: %w", err)
	}
	return s, path, nil
}

// newApp builds the gateway pipeline from the configuration. Audio output
// is only opened when withAudio is set.
func newApp(withAudio bool) (*app, error) {
	s, path, err := newSession()
	if err != nil {
		return nil, err
	}

	var out audio.Output
	if withAudio {
		out = openOutput()
	}

	a, err := assembleApp(gatewayConfig(), s, out, viper.GetBool("audio.autoplay"))
	if err != nil {
		return nil, err
	}
	a.sessionFile = path
	return a, nil
}

// assembleApp wires the client, log, metrics, runner and, when out is not
// nil, the player.
func assembleApp(cfg gateway.Config, s *session.Session, out audio.Output, autoplay bool) (*app, error) {
	client, err := gateway.NewClient(cfg, s)
	if err != nil {
		return nil, fmt.Errorf("unable to create gateway client: %w", err)
	}

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	l := activity.New()

	a := &app{
		session:  s,
		client:   client,
		log:      l,
		registry: reg,
		recorder: rec,
		runner:   attempt.NewRunner(client, l, attempt.WithObserver(rec)),
		output:   out,
	}

	if out != nil {
		a.player = waveform.NewPlayer(out,
			waveform.WithAutoplay(autoplay),
			waveform.WithDecodeFailureHook(func(error) { rec.DecodeFailed() }),
			waveform.WithTransitionHook(func(from, to waveform.State) {
				log.Debug("player", "from", from, "to", to)
			}),
		)
	}
	return a, nil
}

// openOutput opens the system audio device, falling back to a silent
// output when audio is disabled or unavailable.
func openOutput() audio.Output {
	if !viper.GetBool("audio.enabled") {
		return audio.NewMockOutput()
	}

	cfg := audio.DefaultDeviceConfig()
	if v := viper.GetInt("audio.sample_rate"); v != 0 {
		cfg.SampleRate = v
	}
	if viper.IsSet("audio.volume") {
		cfg.Volume = viper.GetFloat64("audio.volume")
	}

	dev, err := audio.NewDevice(cfg)
	if err != nil {
		log.Warn("audio output unavailable, playback disabled", "error", err)
		return audio.NewMockOutput()
	}
	return dev
}

func (a *app) Close() error {
	if a.player != nil {
		a.player.Close()
	}
	if a.output != nil {
		if err := a.output.Close(); err != nil && !errors.Is(err, audio.ErrClosed) {
			return fmt.Errorf("unable to close audio output: %w", err)
		}
	}
	return nil
}

// playbackPoll is how often non-interactive playback checks the position.
const playbackPoll = 100 * time.Millisecond
