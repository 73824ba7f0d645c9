package args

import (
	"context"
	"fmt"
	"log/slog"
	"os/user"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/Rudd3r/sdprep/pkg/domain"
	flag "github.com/spf13/pflag"
)

var _ Command = (*Cmd[interface{}])(nil)

// currentUser is replaceable for testing.
var currentUser = user.Current

type PositionalArg[V any] struct {
	Name        string
	Description string
	Multiple    bool
	Required    bool
	Parse       func(args []string, cfg *V) (next []string, err error)
}

type Cmd[V any] struct {
	Names            []string
	Description      string
	ShortDescription string
	// Privileged commands refuse to run unless invoked by root.
	Privileged     bool
	Flags          func(cfg *V, flags *flag.FlagSet)
	PositionalArgs []*PositionalArg[V]
	Run            func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *V) error

	cmdCfg *V
	flags  *flag.FlagSet
}

func (c *Cmd[V]) Call(ctx context.Context, log *slog.Logger, cfg *domain.Config, args []string) error {
	c.flags = flag.NewFlagSet(c.Names[0], flag.ContinueOnError)
	c.cmdCfg = new(V)
	if c.Flags != nil {
		c.Flags(c.cmdCfg, c.flags)
	}
	c.flags.AddFlagSet(globalFlags)
	c.flags.Usage = func() {}
	c.flags.SetOutput(stderr)
	if err := c.flags.Parse(args); err != nil {
		c.help(err)
		return fmt.Errorf("%w: %v", domain.ErrUsage, err)
	}
	if cfg.Help {
		c.help(nil)
		return nil
	}

	positionalArgs := c.flags.Args()
	var err error
	for _, arg := range c.PositionalArgs {
		if len(positionalArgs) == 0 {
			if arg.Required {
				err = fmt.Errorf("missing required argument %s", strings.ToUpper(arg.Name))
			}
			break
		}
		if positionalArgs, err = arg.Parse(positionalArgs, c.cmdCfg); err != nil {
			break
		}
	}
	if len(positionalArgs) > 0 && err == nil {
		err = fmt.Errorf("command takes no additional positional arguments")
	}
	if err != nil {
		c.help(err)
		return fmt.Errorf("%w: %v", domain.ErrUsage, err)
	}

	_, _ = fmt.Fprintln(stdout, strings.Join(append([]string{c.Names[0]}, c.flags.Args()...), " "))

	if c.Privileged {
		err = requireRoot()
	}
	if err == nil {
		err = c.Run(ctx, log, cfg, c.cmdCfg)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %s\n", err)
		return err
	}
	_, _ = fmt.Fprintln(stdout, "done")
	return nil
}

func requireRoot() error {
	u, err := currentUser()
	if err != nil {
		return fmt.Errorf("determine invoking user: %w", err)
	}
	if u.Username != "root" {
		return fmt.Errorf("%w (running as %s)", domain.ErrPrivilege, u.Username)
	}
	return nil
}

func (c *Cmd[V]) help(err error) {
	_, _ = fmt.Fprintf(stderr, "USAGE: %s", strings.Join(c.Names, ","))
	if c.flags.HasFlags() {
		_, _ = fmt.Fprintf(stderr, " [OPTIONS]")
	}
	for _, arg := range c.PositionalArgs {
		_, _ = fmt.Fprintf(stderr, " ")
		if !arg.Required {
			_, _ = fmt.Fprintf(stderr, "[")
		}
		_, _ = fmt.Fprintf(stderr, "%s", strings.ToUpper(arg.Name))
		if !arg.Required {
			_, _ = fmt.Fprintf(stderr, "]")
		}
		if arg.Multiple && arg.Required {
			_, _ = fmt.Fprintf(stderr, " [%s...]", strings.ToUpper(arg.Name))
		}
	}
	_, _ = fmt.Fprintf(stderr, "\n\n%s\n\n", c.Description)

	if len(c.PositionalArgs) > 0 {
		_, _ = fmt.Fprintf(stderr, "Arguments:\n")
		w := tabwriter.NewWriter(stderr, 0, 0, 2, ' ', 0)
		for _, arg := range c.PositionalArgs {
			_, _ = fmt.Fprintf(w, " %s\t%s\n", strings.ToUpper(arg.Name), arg.Description)
		}
		_ = w.Flush()
		_, _ = fmt.Fprintf(stderr, "\n")
	}

	local := flag.NewFlagSet("", flag.ContinueOnError)
	c.flags.VisitAll(func(f *flag.Flag) {
		if globalFlags.Lookup(f.Name) == nil {
			local.AddFlag(f)
		}
	})
	if local.HasFlags() {
		_, _ = fmt.Fprintf(stderr, "Options:\n%s\n", local.FlagUsagesWrapped(0))
	}
	_, _ = fmt.Fprintf(stderr, "Global Options:\n%s", globalFlags.FlagUsagesWrapped(0))

	if err != nil {
		_, _ = fmt.Fprintf(stderr, "\nError: %s\n\n", err)
	}
}

func (c *Cmd[V]) Usage() Usage {
	return Usage{
		Names: slices.Clone(c.Names),
		Usage: c.ShortDescription,
	}
}
