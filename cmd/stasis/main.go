// stasis inspects, verifies and stores checkpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/stasis/bytecode"
	"github.com/chazu/stasis/checkpoint"
	"github.com/chazu/stasis/codec"
	"github.com/chazu/stasis/config"
	"github.com/chazu/stasis/host"
	"github.com/chazu/stasis/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries what every command needs.
type cli struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	usage string
	help  string
	run   func(c *cli, args []string) error
}

var commands = map[string]command{
	"inspect": {"inspect FILE", "print a checkpoint in CBOR diagnostic notation", (*cli).inspect},
	"stat":    {"stat FILE", "print a checkpoint's header and tag histogram", (*cli).stat},
	"verify":  {"verify FILE", "restore a checkpoint against the reference runtime", (*cli).verify},
	"put":     {"put FILE", "add a checkpoint to the store", (*cli).put},
	"get":     {"get [-o OUT] DIGEST", "read a checkpoint from the store", (*cli).get},
	"ls":      {"ls [SOURCE-PATH]", "list stored checkpoints, newest first", (*cli).ls},
}

var commandOrder = []string{"inspect", "stat", "verify", "put", "get", "ls"}

func run(args []string, stdout, stderr io.Writer) error {
	var (
		verbosity int
		configDir string
	)
	flagSet := pflag.NewFlagSet("stasis", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	flagSet.StringVar(&configDir, "config", "", "directory containing stasis.toml (default: search upward from the working directory)")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	commonlog.Configure(cfg.Log.Verbosity+verbosity, cfg.LogFile())

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stderr, flagSet)
		return fmt.Errorf("no command given")
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command %q (run 'stasis --help' for a list)", rest[0])
	}
	c := &cli{cfg: cfg, stdout: stdout, stderr: stderr}
	return cmd.run(c, rest[1:])
}

func loadConfig(dir string) (*config.Config, error) {
	if dir != "" {
		return config.Load(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.FindAndLoad(wd)
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: stasis [options] <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, name := range commandOrder {
		cmd := commands[name]
		fmt.Fprintf(w, "  %-22s %s\n", cmd.usage, cmd.help)
	}
	fmt.Fprintf(w, "\nOptions:\n")
	flagSet.PrintDefaults()
}

func exactArgs(usage string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("usage: stasis %s", usage)
	}
	return nil
}

// ---------------------------------------------------------------------------
// File commands
// ---------------------------------------------------------------------------

func (c *cli) inspect(args []string) error {
	if err := exactArgs("inspect FILE", args, 1); err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	text, err := codec.Diagnose(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Fprintln(c.stdout, text)
	return nil
}

func (c *cli) stat(args []string) error {
	if err := exactArgs("stat FILE", args, 1); err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	sum, err := checkpoint.Inspect(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	fmt.Fprintf(c.stdout, "version:     %d\n", sum.Version)
	fmt.Fprintf(c.stdout, "source:      %s\n", sum.SourcePath)
	fmt.Fprintf(c.stdout, "lasti:       %d\n", sum.Lasti)
	fmt.Fprintf(c.stdout, "root:        %d (%s)\n", sum.Root, sum.RootTag)
	fmt.Fprintf(c.stdout, "code:        %d bytes\n", sum.CodeSize)
	fmt.Fprintf(c.stdout, "objects:     %d\n", sum.Objects)
	for _, tag := range checkpoint.Tags() {
		if n := sum.Tags[tag]; n > 0 {
			fmt.Fprintf(c.stdout, "  %-20s %d\n", tag, n)
		}
	}
	return nil
}

func (c *cli) verify(args []string) error {
	if err := exactArgs("verify FILE", args, 1); err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	rt := host.New()
	e := checkpoint.New(rt, bytecode.Codec{}, checkpoint.WithReservedModules(c.cfg.Checkpoint.ReservedModules...))
	h, objects, err := e.Load(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	root := objects[h.Root]
	fmt.Fprintf(c.stdout, "ok: %d objects restored, root is %s, code %s at %d\n",
		len(objects), rt.TypeOf(root).Name, h.Code.Name, h.Lasti)
	return nil
}

// ---------------------------------------------------------------------------
// Store commands
// ---------------------------------------------------------------------------

func (c *cli) openStore() (*store.Store, error) {
	opts, err := c.cfg.StoreOptions()
	if err != nil {
		return nil, err
	}
	return store.Open(c.cfg.StoreDir(), opts)
}

func (c *cli) put(args []string) error {
	if err := exactArgs("put FILE", args, 1); err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	s, err := c.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.Put(context.Background(), data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Fprintln(c.stdout, rec.Digest)
	return nil
}

func (c *cli) get(args []string) error {
	var output string
	flagSet := pflag.NewFlagSet("get", pflag.ContinueOnError)
	flagSet.SetOutput(c.stderr)
	flagSet.StringVarP(&output, "output", "o", "", "write the checkpoint to this file instead of stdout")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if err := exactArgs("get [-o OUT] DIGEST", flagSet.Args(), 1); err != nil {
		return err
	}
	d, err := store.ParseDigest(flagSet.Arg(0))
	if err != nil {
		return err
	}

	s, err := c.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := s.Get(context.Background(), d)
	if err != nil {
		return err
	}
	if output == "" {
		_, err = c.stdout.Write(data)
		return err
	}
	return os.WriteFile(output, data, 0o644)
}

func (c *cli) ls(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: stasis ls [SOURCE-PATH]")
	}
	var sourcePath string
	if len(args) == 1 {
		sourcePath = args[0]
	}

	s, err := c.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.List(context.Background(), sourcePath)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIGEST\tSOURCE\tLASTI\tOBJECTS\tSIZE\tSTORED\tCOMPRESSION\tCREATED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.Digest.Short(), r.SourcePath, r.Lasti, r.Objects, r.Size, r.Stored,
			r.Compression, r.Created.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
