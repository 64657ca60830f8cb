package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/HORNET-Storage/hornet-groups/lib/builder"
	"github.com/HORNET-Storage/hornet-groups/lib/groups"
	"github.com/HORNET-Storage/hornet-groups/lib/logging"
	"github.com/HORNET-Storage/hornet-groups/lib/signing"
	"github.com/HORNET-Storage/hornet-groups/lib/stores"
	"github.com/HORNET-Storage/hornet-groups/lib/stores/badgerhold"
	"github.com/HORNET-Storage/hornet-groups/lib/stores/groupstate"
	"github.com/HORNET-Storage/hornet-groups/lib/stores/kvp"
	kvpbbolt "github.com/HORNET-Storage/hornet-groups/lib/stores/kvp/bbolt"
	kvpgraviton "github.com/HORNET-Storage/hornet-groups/lib/stores/kvp/graviton"
	"github.com/HORNET-Storage/hornet-groups/lib/stores/memory"
	"github.com/HORNET-Storage/hornet-groups/lib/types"
)

// app holds what a command needs, opening stores on first use.
type app struct {
	cfg   *types.Config
	flags *pflag.FlagSet
	in    io.Reader
	out   io.Writer

	store stores.Store
	state *groupstate.Store
}

func newApp(cfg *types.Config, flags *pflag.FlagSet, in io.Reader, out io.Writer) *app {
	return &app{cfg: cfg, flags: flags, in: in, out: out}
}

func sortedCommands() []string {
	return slices.Sorted(maps.Keys(commands))
}

// openStore opens the configured event backend.
func openStore(cfg types.StoreConfig) (stores.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return memory.NewStore(), nil
	case "badger":
		store, err := badgerhold.InitStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "bolt":
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, err
		}
		buckets, err := kvpbbolt.InitBuckets(filepath.Join(cfg.Path, "events.bolt"))
		if err != nil {
			return nil, err
		}
		return kvp.NewEventStore(buckets), nil
	case "graviton":
		trees, err := kvpgraviton.InitTrees(cfg.Path)
		if err != nil {
			return nil, err
		}
		return kvp.NewEventStore(trees), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func (a *app) events() (stores.Store, error) {
	if a.store == nil {
		store, err := openStore(a.cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s store: %w", a.cfg.Store.Backend, err)
		}
		logging.Debug("Opened event store", logging.Fields{"backend": a.cfg.Store.Backend, "path": a.cfg.Store.Path})
		a.store = store
	}
	return a.store, nil
}

func (a *app) states() (*groupstate.Store, error) {
	if a.state == nil {
		state, err := groupstate.InitStore(a.cfg.Store.StatePath)
		if err != nil {
			return nil, err
		}
		a.state = state
	}
	return a.state, nil
}

func (a *app) close() error {
	var err error
	if a.store != nil {
		err = multierr.Append(err, a.store.Close())
	}
	if a.state != nil {
		err = multierr.Append(err, a.state.Close())
	}
	if err != nil {
		logging.Error("Failed to close stores", logging.Fields{"error": err})
	}
	return err
}

func (a *app) signer() (*signing.KeySigner, error) {
	if a.cfg.Identity.PrivateKey == "" {
		return nil, fmt.Errorf("no signing key; set --key or identity.private_key")
	}
	key, err := signing.ParsePrivateKey(a.cfg.Identity.PrivateKey)
	if err != nil {
		return nil, err
	}
	return signing.NewKeySigner(key), nil
}

// group parses a group id, filling in the configured relay for a bare local
// id.
func (a *app) group(s string) (groups.GroupID, error) {
	if strings.Contains(s, groups.Delimiter) {
		return groups.Parse(s)
	}
	if a.cfg.Groups.Relay == "" {
		return groups.GroupID{}, fmt.Errorf("group %q has no relay locator and groups.relay is unset", s)
	}
	return groups.New(a.cfg.Groups.Relay, s)
}

func (a *app) dedup() (builder.Dedup, error) {
	return builder.ParseDedup(a.cfg.Builder.Dedup)
}

// publish signs b and prints the event as an outbound EVENT envelope.
func (a *app) publish(ctx context.Context, b builder.Builder) error {
	signer, err := a.signer()
	if err != nil {
		return err
	}
	dedup, err := a.dedup()
	if err != nil {
		return err
	}
	ev, err := b.Dedup(dedup).Sign(ctx, signer)
	if err != nil {
		return err
	}
	return a.write(envelopeEvent(ev))
}
