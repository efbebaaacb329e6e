package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/wolfman30/medassist/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medassist/internal/config"
	"github.com/wolfman30/medassist/internal/voice"
	"github.com/wolfman30/medassist/internal/voice/speaker"
	"github.com/wolfman30/medassist/pkg/logging"
)

type options struct {
	envFile   string
	voiceID   string
	gender    string
	accent    string
	local     bool
	noVary    bool
	logLevel  string
	text      string
	listVoice bool
}

func parseFlags(args []string) (options, error) {
	fs := cli.NewFlagSet("speak", cli.ContinueOnError)
	var opts options
	fs.StringVarP(&opts.envFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&opts.voiceID, "voice", "v", "", "Voice id to use instead of the scored pick")
	fs.StringVarP(&opts.gender, "gender", "g", "", "Preferred voice gender (male or female)")
	fs.StringVarP(&opts.accent, "accent", "a", "", "Preferred accent, e.g. Indian or British")
	fs.BoolVar(&opts.local, "local", false, "Use espeak-ng even when ElevenLabs is configured")
	fs.BoolVar(&opts.noVary, "no-variation", false, "Disable pitch, rate and stability jitter")
	fs.BoolVar(&opts.listVoice, "list", false, "List available voices and exit")
	fs.StringVarP(&opts.logLevel, "log", "l", "warn", "Log level")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.text = strings.Join(fs.Args(), " ")
	return opts, nil
}

// preferenceUpdate turns flags into a preference change. Unset flags keep
// the configured defaults.
func (o options) preferenceUpdate() voice.PreferenceUpdate {
	var u voice.PreferenceUpdate
	if o.gender != "" {
		u.Gender = &o.gender
	}
	if o.accent != "" {
		u.Accent = &o.accent
	}
	if o.noVary {
		off := false
		u.Variation = &off
	}
	return u
}

// readText returns the text to speak, reading stdin when none was given
// or when it is "-".
func readText(text string, stdin io.Reader) (string, error) {
	if text != "" && text != "-" {
		return text, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text = strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("nothing to say")
	}
	return text, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	_ = godotenv.Load(opts.envFile)

	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: opts.logLevel, Format: "text", Writer: os.Stderr})

	if err := run(cfg, opts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "speak: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *appconfig.Config, opts options, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var synth voice.Synthesizer
	if opts.local {
		espeak := voice.NewEspeakSynthesizer(cfg.EspeakBinary)
		if !espeak.Available() {
			return fmt.Errorf("%s not found", cfg.EspeakBinary)
		}
		synth = espeak
	} else {
		synth = bootstrap.BuildSynthesizer(cfg, logger)
	}
	if synth == nil {
		return errors.New("no speech synthesizer configured")
	}

	if opts.listVoice {
		voices, err := synth.Voices(ctx)
		if err != nil {
			return err
		}
		for _, v := range voices {
			fmt.Printf("%-24s %-20s %-7s %s\n", v.ID, v.Name, v.Gender, v.Accent)
		}
		return nil
	}

	text, err := readText(opts.text, os.Stdin)
	if err != nil {
		return err
	}

	prefs := bootstrap.BuildPreferences(cfg)
	if _, err := prefs.Update(opts.preferenceUpdate()); err != nil {
		return err
	}

	engine := voice.NewEngine(synth, speaker.New(), prefs, voice.WithEngineLogger(logger))
	engine.OnSpeakingChange(func(speaking bool) {
		logger.Debug("speaking state changed", "speaking", speaking)
	})

	var override *voice.Voice
	if opts.voiceID != "" {
		override = &voice.Voice{ID: opts.voiceID}
	}
	if err := <-engine.Speak(ctx, text, override); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
