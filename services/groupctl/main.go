// groupctl builds, signs, stores and folds relay-group events from the
// command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/HORNET-Storage/hornet-groups/lib/config"
	"github.com/HORNET-Storage/hornet-groups/lib/logging"
)

type command struct {
	usage string
	run   func(ctx context.Context, app *app, args []string) error
}

// commands is filled in init: the run functions read their own usage line
// from it.
var commands map[string]command

func init() {
	commands = map[string]command{
		"keygen":       {"keygen", runKeygen},
		"create":       {"create <group> [--name n] [--about a] [--picture url] [--private] [--closed]", runCreate},
		"edit":         {"edit <group> [--name n] [--about a] [--picture url] [--private|--public] [--closed|--open]", runEdit},
		"put-user":     {"put-user <group> <pubkey> [role...]", runPutUser},
		"remove-user":  {"remove-user <group> <pubkey>", runRemoveUser},
		"message":      {"message <group> <text> [--previous id...]", runMessage},
		"join":         {"join <group> [--reason r] [--code c]", runJoin},
		"leave":        {"leave <group> [--reason r]", runLeave},
		"invite":       {"invite <group> [--code c]", runInvite},
		"delete-event": {"delete-event <group> <event-id>", runDeleteEvent},
		"delete-group": {"delete-group <group>", runDeleteGroup},
		"ingest":       {"ingest [file]  (JSON lines, - or none for stdin)", runIngest},
		"fold":         {"fold <group> [--persist] [--relay-key pk...]", runFold},
		"query":        {"query <filter-json>", runQuery},
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("groupctl", pflag.ContinueOnError)
	fs.String("config", "", "path to a config file (default ./config.yaml when present)")
	fs.String("backend", "memory", "event store backend: memory, badger, bolt or graviton")
	fs.String("store-path", "data/events", "event store location")
	fs.String("state-path", "data/groups.db", "sqlite file for folded group state")
	fs.String("relay", "", "relay locator for group ids given without one")
	fs.String("key", "", "signing key, hex or nsec")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.Bool("no-verify", false, "skip signature checks on ingest and fold")

	fs.String("name", "", "group name")
	fs.String("about", "", "group description")
	fs.String("picture", "", "group picture url")
	fs.Bool("private", false, "mark the group private")
	fs.Bool("public", false, "mark the group public")
	fs.Bool("closed", false, "mark the group closed")
	fs.Bool("open", false, "mark the group open")
	fs.String("reason", "", "free text reason")
	fs.String("code", "", "invite code")
	fs.StringSlice("previous", nil, "ids of recent group events to reference")
	fs.Bool("persist", false, "save the folded state to the state database")
	fs.StringSlice("relay-key", nil, "relay pubkeys trusted for snapshots; enables admin checks")
	fs.BoolP("help", "h", false, "show help")
	return fs
}

// bindFlags maps flags onto their configuration keys so a flag set on the
// command line overrides file and environment values.
func bindFlags(fs *pflag.FlagSet) error {
	for key, flag := range map[string]string{
		"store.backend":        "backend",
		"store.path":           "store-path",
		"store.state_path":     "state-path",
		"groups.relay":         "relay",
		"identity.private_key": "key",
		"logging.level":        "log-level",
	} {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

func printHelp(fs *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "usage: groupctl <command> [flags]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	for _, name := range sortedCommands() {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(os.Stderr, "\nflags:")
	fmt.Fprint(os.Stderr, fs.FlagUsages())
}

func run(argv []string) error {
	fs := newFlagSet()
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(fs)
			return nil
		}
		return err
	}
	args := fs.Args()
	if help, _ := fs.GetBool("help"); help || len(args) == 0 {
		printHelp(fs)
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		printHelp(fs)
		return fmt.Errorf("unknown command %q", args[0])
	}

	if err := bindFlags(fs); err != nil {
		return err
	}
	configFile, _ := fs.GetString("config")
	if err := config.InitConfig(configFile); err != nil {
		return err
	}
	if noVerify, _ := fs.GetBool("no-verify"); noVerify {
		if err := config.UpdateConfig("groups.verify_signatures", false); err != nil {
			return err
		}
	}
	if err := logging.InitLogger(); err != nil {
		return err
	}
	defer logging.GetLogger().Close()

	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, fs, os.Stdin, os.Stdout)
	defer a.close()

	return cmd.run(ctx, a, args[1:])
}
