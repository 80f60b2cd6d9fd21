package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttsconsole/internal/activity"
	"github.com/dgnsrekt/ttsconsole/internal/attempt"
	"github.com/dgnsrekt/ttsconsole/internal/gateway"
	"github.com/dgnsrekt/ttsconsole/internal/waveform"
	"github.com/dgnsrekt/ttsconsole/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// sayOptions is one non-interactive synthesis.
type sayOptions struct {
	text   string
	voice  string
	model  string
	extra  string
	output string // file to write; "-" for stdout; empty plays the audio
}

var (
	sayOpts sayOptions

	sayCmd = &cobra.Command{
		Use:   "say [TEXT]",
		Short: "Synthesize text once and play or save the audio",
		Long: paragraph(fmt.Sprintf("\n%s text through the gateway without the interactive demo. "+
			"Text is read from the arguments or from stdin.", keyword("Synthesize"))),
		Example: paragraph("ttsconsole say \"Hello there\"\necho Hello | ttsconsole say --voice Joanna -o hello.mp3"),
		Args:    cobra.ArbitraryArgs,
		RunE:    runSay,
	}
)

func init() {
	sayCmd.Flags().StringVar(&sayOpts.voice, "voice", "", "voice ID (default from config)")
	sayCmd.Flags().StringVar(&sayOpts.model, "model", "", "provider hint (default from config)")
	sayCmd.Flags().StringVarP(&sayOpts.extra, "extra", "e", "", "extra parameters as a JSON object")
	sayCmd.Flags().StringVarP(&sayOpts.output, "output", "o", "", "write audio to a file instead of playing it (- for stdout)")
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func runSay(cmd *cobra.Command, args []string) error {
	opts := sayOpts
	opts.text = strings.Join(args, " ")
	if opts.text == "" {
		if yes, err := stdinIsPipe(); err != nil {
			return err
		} else if yes {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("unable to read from stdin: %w", err)
			}
			opts.text = strings.TrimRight(string(b), "\n")
		}
	}
	if !cmd.Flags().Changed("voice") {
		opts.voice = viper.GetString("demo.voice")
	}
	if !cmd.Flags().Changed("model") {
		opts.model = viper.GetString("demo.model")
	}

	a, err := newApp(opts.output == "")
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("unable to release audio", "error", err)
		}
	}()

	return say(cmd.Context(), a, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// say runs one attempt, prints its log rows to errOut and delivers the
// audio.
func say(ctx context.Context, a *app, opts sayOptions, out, errOut io.Writer) error {
	res, err := a.runner.Submit(ctx, opts.text, opts.voice, opts.model, opts.extra)
	if err != nil {
		return err //nolint:wrapcheck
	}

	printEntries(errOut, a.log.Entries())

	switch o := res.Outcome.(type) {
	case gateway.Failure:
		return errors.New(attempt.InlineError(o))
	case gateway.Success:
		if opts.output != "" {
			return writeAudio(o, opts.output, out, errOut)
		}
		return play(ctx, a.player, o, errOut)
	}
	return nil
}

func writeAudio(s gateway.Success, output string, out, errOut io.Writer) error {
	if output == "-" {
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return errors.New("refusing to write audio to a terminal")
		}
		_, err := out.Write(s.Audio)
		return err //nolint:wrapcheck
	}

	p := utils.OutputPath(output, s.MIMEType)
	if err := os.WriteFile(p, s.Audio, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("unable to write audio: %w", err)
	}
	fmt.Fprintln(errOut, successStyle.Render("Wrote "+humanize.Bytes(uint64(len(s.Audio)))+" to "+p))
	return nil
}

// play decodes the clip and blocks until it finishes or ctx is done.
func play(ctx context.Context, p *waveform.Player, s gateway.Success, errOut io.Writer) error {
	if p == nil {
		return errors.New("audio output is disabled")
	}
	if err := p.Load(ctx, s.Audio, s.MIMEType); err != nil {
		return fmt.Errorf("unable to play audio: %w", err)
	}
	if p.State() == waveform.StateReady {
		if err := p.Toggle(); err != nil {
			return fmt.Errorf("unable to start playback: %w", err)
		}
	}

	fmt.Fprintln(errOut, subtleStyle.Render(fmt.Sprintf("▶ %s %s",
		waveform.Bars(p.Peaks(40)),
		waveform.Clock(p.Playback().Duration),
	)))

	ticker := time.NewTicker(playbackPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Close()
			return nil
		case <-ticker.C:
			p.Sample()
			if p.State() != waveform.StatePlaying {
				return nil
			}
		}
	}
}

// printEntries writes log rows the way the demo shows them.
func printEntries(w io.Writer, entries []activity.Entry) {
	for _, e := range entries {
		row := fmt.Sprintf("[%s] %s %s", e.Timestamp.Format("15:04:05"), e.Method, e.URL)
		if e.Status != nil {
			row += fmt.Sprintf(" %d", *e.Status)
		}
		if ms, ok := e.DurationMs(); ok {
			row += fmt.Sprintf(" %dms", ms)
		}
		if e.IsError {
			fmt.Fprintln(w, errorStyle.Render(row))
			continue
		}
		fmt.Fprintln(w, subtleStyle.Render(row))
	}
}
