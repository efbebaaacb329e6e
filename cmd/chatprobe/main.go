package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/wolfman30/medassist/internal/app/bootstrap"
	appconfig "github.com/wolfman30/medassist/internal/config"
	"github.com/wolfman30/medassist/internal/conversation"
	"github.com/wolfman30/medassist/pkg/logging"
)

type options struct {
	envFile  string
	message  string
	probeAll bool
	timeout  time.Duration
	logLevel string
}

func parseFlags(args []string) (options, error) {
	fs := cli.NewFlagSet("chatprobe", cli.ContinueOnError)
	var opts options
	fs.StringVarP(&opts.envFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&opts.message, "message", "m", "Hello, I'd like to book an appointment for tomorrow at 10am", "Message to send")
	fs.BoolVarP(&opts.probeAll, "all", "a", false, "Probe every configured model directly instead of running one chat turn")
	fs.DurationVarP(&opts.timeout, "timeout", "t", 30*time.Second, "Overall timeout")
	fs.StringVarP(&opts.logLevel, "log", "l", "warn", "Log level")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		opts.message = rest[0]
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	_ = godotenv.Load(opts.envFile)

	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: opts.logLevel, Format: "text", Writer: os.Stderr})

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if opts.probeAll {
		candidates, err := bootstrap.BuildCandidates(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "chatprobe: %v\n", err)
			os.Exit(1)
		}
		if failed := probeCandidates(ctx, os.Stdout, candidates, opts.message); failed == len(candidates) {
			os.Exit(1)
		}
		return
	}

	searcher := bootstrap.BuildSearcher(cfg, logger, nil)
	orchestrator, err := bootstrap.BuildOrchestrator(ctx, cfg, searcher, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatprobe: %v\n", err)
		os.Exit(1)
	}
	if err := runTurn(ctx, os.Stdout, orchestrator, opts.message); err != nil {
		fmt.Fprintf(os.Stderr, "chatprobe: %v\n", err)
		os.Exit(1)
	}
}

// runTurn sends one message through the responder and prints the reply
// envelope as indented JSON.
func runTurn(ctx context.Context, w io.Writer, responder conversation.Responder, message string) error {
	resp := responder.GenerateChatResponse(ctx, message, nil)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// probeCandidates asks every model the same question and reports latency
// and token usage. It returns how many failed.
func probeCandidates(ctx context.Context, w io.Writer, candidates []conversation.Candidate, message string) int {
	req := conversation.LLMRequest{
		System:      []string{"You are a friendly medical front-desk assistant. Keep responses brief."},
		Messages:    []conversation.ChatMessage{{Role: conversation.ChatRoleUser, Content: message}},
		MaxTokens:   200,
		Temperature: 0.7,
	}

	failed := 0
	for i, cand := range candidates {
		req.Model = cand.Model
		start := time.Now()
		resp, err := cand.Client.Complete(ctx, req)
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			failed++
			fmt.Fprintf(w, "[%d] %s FAILED after %v: %v\n", i+1, cand.Model, elapsed, err)
			continue
		}
		fmt.Fprintf(w, "[%d] %s ok in %v (tokens in=%d out=%d)\n    %s\n",
			i+1, cand.Model, elapsed, resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Text)
	}
	fmt.Fprintf(w, "%d/%d models answered\n", len(candidates)-failed, len(candidates))
	return failed
}
