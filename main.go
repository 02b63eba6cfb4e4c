// Command docbridge runs bridge operations against configured document
// trees and host paths from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"docbridge/internal/app"
	"docbridge/internal/bridge"
	"docbridge/internal/constants"
	"docbridge/internal/jobs"
	"docbridge/internal/location"
	"docbridge/internal/logging"
	"docbridge/internal/watcher"
)

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, a *app.App, args []string) error
}

var commands = map[string]command{
	"trees": {"trees", "list configured tree roots", runTrees},
	"find":  {"find [flags] <root>", "enumerate the tree a location belongs to", runFind},
	"cat":   {"cat [--max-size N] <location>", "write a document to stdout", runCat},
	"put":   {"put <location> [file]", "replace a document with a file or stdin", runPut},
	"rm":    {"rm <location>", "delete a document", runRm},
	"cp":    {"cp <source> <destination>...", "copy documents, pairwise, between locations", runCopy},
	"mv":    {"mv <source> <destination>...", "move documents, pairwise, between locations", runMove},
	"name":  {"name <location>", "print a document's display name", runName},
	"leaf":  {"leaf <location>", "print the last path component of a location", runLeaf},
	"stat":  {"stat <location>", "print size, modification time and attributes", runStat},
	"fd":    {"fd [--mode M] <location>", "open a descriptor and copy through it", runFd},
	"image": {"image <location>", "decode an image and print its dimensions", runImage},
	"watch": {"watch [flags] <root>", "print changes below a tree until interrupted", runWatch},
}

var commandOrder = []string{"trees", "find", "cat", "put", "rm", "cp", "mv", "name", "leaf", "stat", "fd", "image", "watch"}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts app.Options
	flagSet := pflag.NewFlagSet(constants.ApplicationName, pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.BoolVarP(&opts.Debug, "debug", "d", false, "enable debug logging")
	flagSet.StringVar(&opts.ConfigPath, "config", "", "configuration file (default: OS config directory)")
	flagSet.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	flagSet.Usage = func() { printHelp(flagSet) }

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	args := flagSet.Args()
	if len(args) == 0 {
		printHelp(flagSet)
		return errors.New("no command given")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	logging.Debug("running command", zap.String("command", args[0]), zap.Strings("args", args[1:]))
	return cmd.run(ctx, a, args[1:])
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <command> [args]\n\nCommands:\n", constants.ApplicationName)
	for _, name := range commandOrder {
		c := commands[name]
		fmt.Fprintf(os.Stderr, "  %-32s %s\n", c.usage, c.help)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n%s", flagSet.FlagUsages())
}

// subcommand parses a subcommand's flags and returns its positional arguments.
func subcommand(name string, args []string, want int, setup func(*pflag.FlagSet)) ([]string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if setup != nil {
		setup(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if len(rest) < want {
		return nil, fmt.Errorf("%s: missing argument (see %s --help)", name, constants.ApplicationName)
	}
	return rest, nil
}

// parseArg parses the single location argument of a flagless subcommand.
func parseArg(name string, args []string) (location.Location, error) {
	rest, err := subcommand(name, args, 1, nil)
	if err != nil {
		return location.Location{}, err
	}
	return location.Parse(rest[0])
}

func runTrees(ctx context.Context, a *app.App, args []string) error {
	for _, authority := range a.Registry.Authorities() {
		root, err := a.Registry.TreeRoot(authority)
		if err != nil {
			fmt.Printf("%s\t-\n", authority)
			continue
		}
		fmt.Printf("%s\t%s\n", authority, root)
	}
	return nil
}

func runFind(ctx context.Context, a *app.App, args []string) error {
	var recursive, folders, files bool
	var pattern string
	rest, err := subcommand("find", args, 1, func(fs *pflag.FlagSet) {
		fs.BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
		fs.BoolVar(&folders, "folders", false, "emit directories")
		fs.BoolVar(&files, "files", true, "emit files")
		fs.StringVarP(&pattern, "pattern", "p", "", "only emit names matching this glob")
	})
	if err != nil {
		return err
	}
	root, err := location.Parse(rest[0])
	if err != nil {
		return err
	}

	var flags bridge.FindFlags
	if recursive {
		flags |= bridge.FindRecursive
	}
	if folders {
		flags |= bridge.FindFolders
	}
	if files {
		flags |= bridge.FindFiles
	}
	results, err := a.Bridge.Find(ctx, root, bridge.FindOptions{Flags: flags, Pattern: pattern})
	if err != nil {
		return err
	}
	for _, r := range results {
		kind := "f"
		if r.IsDirectory() {
			kind = "d"
		}
		fmt.Printf("%s\t%d\t%s\t%s\n", kind, r.Size, formatMillis(r.ModifiedTime), r.Location)
	}
	return nil
}

func runCat(ctx context.Context, a *app.App, args []string) error {
	maxSize := a.Config.Content.MaxReadSize
	rest, err := subcommand("cat", args, 1, func(fs *pflag.FlagSet) {
		fs.Int64Var(&maxSize, "max-size", maxSize, "refuse documents larger than this many bytes (0 = unbounded)")
	})
	if err != nil {
		return err
	}
	loc, err := location.Parse(rest[0])
	if err != nil {
		return err
	}
	if maxSize < 0 {
		return errors.New("--max-size must not be negative")
	}
	data, err := a.Bridge.ReadAll(ctx, loc, uint64(maxSize))
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runPut(ctx context.Context, a *app.App, args []string) error {
	rest, err := subcommand("put", args, 1, nil)
	if err != nil {
		return err
	}
	loc, err := location.Parse(rest[0])
	if err != nil {
		return err
	}
	var data []byte
	if len(rest) > 1 && rest[1] != "-" {
		data, err = os.ReadFile(rest[1])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}
	return a.Bridge.WriteAll(ctx, loc, data)
}

func runRm(ctx context.Context, a *app.App, args []string) error {
	loc, err := parseArg("rm", args)
	if err != nil {
		return err
	}
	ok, err := a.Bridge.Delete(ctx, loc)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: nothing deleted", loc)
	}
	return nil
}

func runCopy(ctx context.Context, a *app.App, args []string) error {
	return runTransfer(ctx, a, "cp", args, (*jobs.Manager).EnqueueCopy)
}

func runMove(ctx context.Context, a *app.App, args []string) error {
	return runTransfer(ctx, a, "mv", args, (*jobs.Manager).EnqueueMove)
}

// runTransfer queues source/destination pairs as one job and waits for it.
func runTransfer(ctx context.Context, a *app.App, name string, args []string, enqueue func(*jobs.Manager, []jobs.Transfer) *jobs.Job) error {
	rest, err := subcommand(name, args, 2, nil)
	if err != nil {
		return err
	}
	if len(rest)%2 != 0 {
		return fmt.Errorf("%s: arguments must be source/destination pairs", name)
	}
	transfers := make([]jobs.Transfer, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		transfers = append(transfers, jobs.Transfer{Source: rest[i], Destination: rest[i+1]})
	}

	m := jobs.NewManager(a.Bridge)
	defer m.Close()
	j := enqueue(m, transfers)
	select {
	case <-j.Done():
	case <-ctx.Done():
		j.Cancel()
		<-j.Done()
	}

	s := j.Snapshot()
	fmt.Fprintf(os.Stderr, "%s: %s, %d/%d documents, %d bytes\n", name, s.Status, s.DoneFiles, s.TotalFiles, s.BytesCopied)
	if s.Status != jobs.StatusCompleted {
		if s.Failure != nil {
			return fmt.Errorf("%s -> %s: %s", s.Failure.Transfer.Source, s.Failure.Transfer.Destination, s.Failure.Error)
		}
		return fmt.Errorf("%s %s", name, s.Status)
	}
	return nil
}

func runName(ctx context.Context, a *app.App, args []string) error {
	loc, err := parseArg("name", args)
	if err != nil {
		return err
	}
	name, err := a.Bridge.DisplayName(ctx, loc)
	if err != nil {
		return err
	}
	fmt.Println(name)
	return nil
}

func runLeaf(ctx context.Context, a *app.App, args []string) error {
	rest, err := subcommand("leaf", args, 1, nil)
	if err != nil {
		return err
	}
	fmt.Println(location.LeafName(rest[0]))
	return nil
}

func runStat(ctx context.Context, a *app.App, args []string) error {
	loc, err := parseArg("stat", args)
	if err != nil {
		return err
	}
	sd, err := a.Bridge.Stat(ctx, loc)
	if err != nil {
		return err
	}
	kind := "file"
	if sd.Attributes&bridge.AttributeDirectory != 0 {
		kind = "directory"
	}
	fmt.Printf("type: %s\nsize: %d\nmodified: %s\n", kind, sd.Size, formatMillis(sd.ModifiedTime))
	return nil
}

// runFd exports a descriptor and uses it like a native caller would: read
// modes copy to stdout, write modes copy stdin in.
func runFd(ctx context.Context, a *app.App, args []string) error {
	mode := "r"
	rest, err := subcommand("fd", args, 1, func(fs *pflag.FlagSet) {
		fs.StringVarP(&mode, "mode", "m", mode, "open mode: r, w, wt, wa, rw, rwt")
	})
	if err != nil {
		return err
	}
	loc, err := location.Parse(rest[0])
	if err != nil {
		return err
	}
	fd, err := a.Bridge.OpenDescriptor(ctx, loc, mode)
	if err != nil {
		return err
	}
	f := os.NewFile(uintptr(fd), loc.String())
	defer f.Close()
	logging.Debug("descriptor exported", zap.Int("fd", int(fd)), zap.String("mode", mode))

	if mode == "r" {
		_, err = io.Copy(os.Stdout, f)
	} else {
		_, err = io.Copy(f, os.Stdin)
	}
	return err
}

func runImage(ctx context.Context, a *app.App, args []string) error {
	loc, err := parseArg("image", args)
	if err != nil {
		return err
	}
	img, err := a.Bridge.LoadImage(ctx, loc)
	if err != nil {
		return err
	}
	b := img.Bounds()
	fmt.Printf("%dx%d\n", b.Dx(), b.Dy())
	return nil
}

func runWatch(ctx context.Context, a *app.App, args []string) error {
	interval := a.Config.Watcher.Interval()
	recursive := true
	rest, err := subcommand("watch", args, 1, func(fs *pflag.FlagSet) {
		fs.DurationVar(&interval, "interval", interval, "polling interval")
		fs.BoolVarP(&recursive, "recursive", "r", recursive, "watch subdirectories")
	})
	if err != nil {
		return err
	}
	root, err := location.Parse(rest[0])
	if err != nil {
		return err
	}

	cn := watcher.NewChangeNotifier(a.Bridge, root, recursive, interval)
	if err := cn.Start(ctx); err != nil {
		return err
	}
	defer cn.Stop()

	ticker := time.NewTicker(constants.WatcherInterval / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cn.EnumerateChanges(func(c watcher.Change) {
				fmt.Printf("%s\t%s\n", c.Event, c.Result.Location)
			})
		}
	}
}

func formatMillis(ms uint64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(int64(ms)).Format(time.RFC3339)
}
