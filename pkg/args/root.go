package args

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/Rudd3r/sdprep/pkg/domain"
	flag "github.com/spf13/pflag"
)

var (
	globalFlags *flag.FlagSet

	// stdout carries the command echo, listings and the final "done";
	// help, logs and errors go to stderr.
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

type Command interface {
	Call(ctx context.Context, log *slog.Logger, cfg *domain.Config, args []string) error
	Usage() Usage
}

type Usage struct {
	Names []string
	Usage string
}

type Root struct {
	Name        string
	Description string
	Commands    []Command

	cfg *domain.Config
}

// Run executes the command line of the current process and exits with its status.
func (r *Root) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	exit := r.Main(ctx, os.Args[1:])
	stop()
	os.Exit(exit)
}

// Main dispatches args and returns the process exit status.
func (r *Root) Main(ctx context.Context, args []string) int {
	cfgDir, err := getConfigDirectory(args)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return domain.ExitRuntime
	}

	r.cfg = &domain.Config{}
	if err = r.cfg.Load(cfgDir); err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return domain.ExitRuntime
	}
	rest := r.handleGlobalFlags(args)

	logCfg := &slog.HandlerOptions{Level: r.cfg.LogLevel}
	if r.cfg.LogLevel == slog.LevelDebug {
		logCfg.AddSource = true
	}
	log := slog.New(slog.NewTextHandler(stderr, logCfg))

	if len(rest) == 0 {
		r.help()
		if r.cfg.Help {
			return domain.ExitOK
		}
		_, _ = fmt.Fprintf(stderr, "\nError: no command given\n")
		return domain.ExitUsage
	}

	commandName := strings.ToLower(strings.TrimSpace(rest[0]))
	for _, cmd := range r.Commands {
		if !slices.Contains(cmd.Usage().Names, commandName) {
			continue
		}
		i := slices.Index(args, rest[0])
		err = cmd.Call(ctx, log, r.cfg, slices.Delete(slices.Clone(args), i, i+1))
		if err != nil {
			log.Debug("command failed", "command", commandName, "error", err)
		}
		return domain.ExitCode(err)
	}

	r.help()
	_, _ = fmt.Fprintf(stderr, "\nError: unknown command %q\n", rest[0])
	return domain.ExitUsage
}

// handleGlobalFlags applies the global options found anywhere in args and
// returns the remaining positional arguments, the command name first.
func (r *Root) handleGlobalFlags(args []string) []string {
	var verbose bool
	var debug bool

	globalFlags = flag.NewFlagSet("global", flag.ContinueOnError)
	globalFlags.BoolVarP(&r.cfg.Help, "help", "h", false, "Show this help")
	globalFlags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	globalFlags.BoolVar(&debug, "debug", false, "Debug output")
	globalFlags.StringVar(&r.cfg.ConfigDir, "config-dir", r.cfg.ConfigDir, "Path to config dir")
	globalFlags.ParseErrorsAllowlist = flag.ParseErrorsAllowlist{UnknownFlags: true}
	globalFlags.SetOutput(io.Discard)
	_ = globalFlags.Parse(args)

	if verbose {
		r.cfg.LogLevel = slog.LevelInfo
	}
	if debug {
		r.cfg.LogLevel = slog.LevelDebug
	}
	return globalFlags.Args()
}

func getConfigDirectory(args []string) (cfgDir string, err error) {
	cfgDir, _ = domain.UserConfigDir()
	f := flag.NewFlagSet("", flag.ContinueOnError)
	f.BoolP("help", "h", false, "Show this help")
	f.StringVar(&cfgDir, "config-dir", cfgDir, "Path to config dir")
	f.ParseErrorsAllowlist = flag.ParseErrorsAllowlist{UnknownFlags: true}
	f.SetOutput(io.Discard)
	_ = f.Parse(args)
	if cfgDir == "" {
		return cfgDir, errors.New("cannot determine config directory")
	}
	return cfgDir, nil
}

func (r *Root) help() {
	_, _ = fmt.Fprintf(stderr, "USAGE: %s [OPTIONS] COMMAND\n", r.Name)
	_, _ = fmt.Fprintf(stderr, "\n")
	_, _ = fmt.Fprintf(stderr, "%s\n", r.Description)
	_, _ = fmt.Fprintf(stderr, "\n")
	_, _ = fmt.Fprintf(stderr, "Commands:\n")
	w := tabwriter.NewWriter(stderr, 0, 0, 1, ' ', tabwriter.AlignRight|tabwriter.Debug)
	for _, cmd := range r.Commands {
		usage := cmd.Usage()
		_, _ = fmt.Fprintln(w, strings.Join(usage.Names, ","), "\t", usage.Usage)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(stderr, "\n")
	_, _ = fmt.Fprintf(stderr, "Global Options:\n")
	_, _ = fmt.Fprintf(stderr, "%s", globalFlags.FlagUsagesWrapped(0))
}
