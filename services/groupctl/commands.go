package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	jsoniter "github.com/json-iterator/go"

	"github.com/HORNET-Storage/hornet-groups/lib/envelope"
	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/filter"
	"github.com/HORNET-Storage/hornet-groups/lib/groups"
	"github.com/HORNET-Storage/hornet-groups/lib/logging"
	"github.com/HORNET-Storage/hornet-groups/lib/retention"
	"github.com/HORNET-Storage/hornet-groups/lib/signing"
)

var json = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

const (
	// maxLine bounds one JSON line read by ingest.
	maxLine = 4 << 20
	// maxFoldEvents caps each selector query made by fold.
	maxFoldEvents = 100000
)

func (a *app) write(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func envelopeEvent(ev *events.Event) envelope.Envelope {
	return envelope.EventEnvelope{Event: ev}
}

// okFor renders an ingest result as a relay would acknowledge it.
func okFor(ev *events.Event, res retention.Result) envelope.OKEnvelope {
	return envelope.OKEnvelope{EventID: ev.ID, OK: res.Accepted(), Reason: res.Message}
}

func needArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: groupctl %s", usage)
	}
	return nil
}

func runKeygen(ctx context.Context, a *app, args []string) error {
	key, err := signing.GeneratePrivateKey()
	if err != nil {
		return err
	}
	nsec, err := signing.SerializePrivateKey(key)
	if err != nil {
		return err
	}
	pubkey := signing.PublicKeyHex(key)
	npub, err := signing.SerializePublicKey(pubkey)
	if err != nil {
		return err
	}
	return a.write(map[string]string{
		"private_key": fmt.Sprintf("%x", key.Serialize()),
		"nsec":        nsec,
		"pubkey":      pubkey,
		"npub":        npub,
	})
}

// patchFromFlags collects the metadata flags that were set on the command
// line.
func (a *app) patchFromFlags() (groups.Patch, error) {
	var p groups.Patch
	for flag, field := range map[string]**string{"name": &p.Name, "about": &p.About, "picture": &p.Picture} {
		if a.flags.Changed(flag) {
			v, _ := a.flags.GetString(flag)
			*field = &v
		}
	}

	flagged := func(name string) bool {
		v, _ := a.flags.GetBool(name)
		return v
	}
	switch {
	case flagged("private") && flagged("public"):
		return p, fmt.Errorf("--private and --public are exclusive")
	case flagged("private"):
		v := groups.Private
		p.Privacy = &v
	case flagged("public"):
		v := groups.Public
		p.Privacy = &v
	}
	switch {
	case flagged("closed") && flagged("open"):
		return p, fmt.Errorf("--closed and --open are exclusive")
	case flagged("closed"):
		v := groups.Closed
		p.Access = &v
	case flagged("open"):
		v := groups.Open
		p.Access = &v
	}
	return p, nil
}

func runCreate(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 1, commands["create"].usage); err != nil {
		return err
	}
	g, err := a.group(args[0])
	if err != nil {
		return err
	}
	p, err := a.patchFromFlags()
	if err != nil {
		return err
	}
	b, err := groups.CreateGroup(g, groups.Metadata{}.Apply(p))
	if err != nil {
		return err
	}
	return a.publish(ctx, b)
}

func runEdit(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 1, commands["edit"].usage); err != nil {
		return err
	}
	g, err := a.group(args[0])
	if err != nil {
		return err
	}
	p, err := a.patchFromFlags()
	if err != nil {
		return err
	}
	b, err := groups.EditMetadata(g, p)
	if err != nil {
		return err
	}
	return a.publish(ctx, b)
}

func runPutUser(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 2, commands["put-user"].usage); err != nil {
		return err
	}
	g, err := a.group(args[0])
	if err != nil {
		return err
	}
	pubkey, err := signing.ParsePublicKey(args[1])
	if err != nil {
		return err
	}
	b, err := groups.PutUser(g, pubkey, args[2:]...)
	if err != nil {
		return err
	}
	return a.publish(ctx, b)
}

func runRemoveUser(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 2, commands["remove-user"].usage); err != nil {
		return err
	}
	g, err := a.group(args[0])
	if err != nil {
		return err
	}
	pubkey, err := signing.ParsePublicKey(args[1])
	if err != nil {
		return err
	}
	b, err := groups.RemoveUser(g, pubkey)
	if err != nil {
		return err
	}
	return a.publish(ctx, b)
}

func runMessage(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 2, commands["message"].usage); err != nil {
		return err
	}
	g, err := a.group(args[0])
	if err != nil {
		return err
	}
	b, err := groups.Message(g, args[1])
	if err != nil {
		return err
	}
	if previous, _ := a.flags.GetStringSlice("previous"); len(previous) > 0 {
		if b, err = groups.WithPrevious(b, previous...); err != nil {
			return err
		}
	}
	return a.publish(ctx, b)
}

func runJoin(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 1, commands["join"].usage); err != nil {
		return err
	}
	g, err := a.group(args[0])
	if err != nil {
		return err
	}
	reason, _ := a.flags.GetString("reason")
	code, _ := a.flags.GetString("code")
	b, err := groups.JoinRequest(g, reason, code)
	if err != nil {
		return err
	}
	return a.publish(ctx, b)
}

func runLeave(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 1, commands["leave"].usage); err != nil {
		return err
	}
	g, err := a.group(args[0])
	if err != nil {
		return err
	}
	reason, _ := a.flags.GetString("reason")
	b, err := groups.LeaveRequest(g, reason)
	if err != nil {
		return err
	}
	return a.publish(ctx, b)
}

func runInvite(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 1, commands["invite"].usage); err != nil {
		return err
	}
	g, err := a.group(args[0])
	if err != nil {
		return err
	}
	code, _ := a.flags.GetString("code")
	b, err := groups.CreateInvite(g, code)
	if err != nil {
		return err
	}
	return a.publish(ctx, b)
}

func runDeleteEvent(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 2, commands["delete-event"].usage); err != nil {
		return err
	}
	g, err := a.group(args[0])
	if err != nil {
		return err
	}
	b, err := groups.DeleteEvent(g, args[1])
	if err != nil {
		return err
	}
	return a.publish(ctx, b)
}

func runDeleteGroup(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 1, commands["delete-group"].usage); err != nil {
		return err
	}
	g, err := a.group(args[0])
	if err != nil {
		return err
	}
	b, err := groups.DeleteGroup(g)
	if err != nil {
		return err
	}
	return a.publish(ctx, b)
}

// decodeLine accepts a bare event or an EVENT envelope.
func decodeLine(line []byte) (*events.Event, error) {
	if env, err := envelope.Parse(line); err == nil {
		if e, ok := env.(envelope.EventEnvelope); ok {
			return e.Event, nil
		}
		return nil, fmt.Errorf("expected an EVENT envelope, got %s", env.Label())
	}
	return events.Decode(line)
}

func runIngest(ctx context.Context, a *app, args []string) error {
	in := a.in
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	store, err := a.events()
	if err != nil {
		return err
	}
	var opts []retention.Option
	if !a.cfg.Groups.VerifySignatures {
		opts = append(opts, retention.WithoutVerification())
	}
	return ingest(ctx, retention.NewIngestor(store, opts...), in, a)
}

func ingest(ctx context.Context, in *retention.Ingestor, r io.Reader, a *app) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	counts := make(map[string]int)
	for n := 1; scanner.Scan(); n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		ev, err := decodeLine(line)
		if err != nil {
			logging.Warn("Skipping undecodable line", logging.Fields{"line": n, "error": err})
			if err := a.write(envelope.NoticeEnvelope(fmt.Sprintf("line %d: %v", n, err))); err != nil {
				return err
			}
			continue
		}

		res, err := in.Ingest(ctx, ev)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		counts[res.Status.String()]++
		if err := a.write(okFor(ev, res)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	logging.Info("Ingest finished", logging.Fields{"results": counts})
	return nil
}

// stateView is the printed form of a folded group.
type stateView struct {
	Group     string          `json:"group"`
	Lifecycle string          `json:"lifecycle"`
	Metadata  groups.Metadata `json:"metadata"`
	Admins    []groups.Admin  `json:"admins"`
	Members   []string        `json:"members"`
	Pending   []string        `json:"pending,omitempty"`
	Roles     []groups.Role   `json:"roles,omitempty"`
	Retracted []string        `json:"retracted,omitempty"`
	Invites   []string        `json:"invites,omitempty"`
	UpdatedAt int64           `json:"updated_at"`
	Skipped   []groups.Skip   `json:"skipped,omitempty"`
}

func keys(m map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(m))
}

func viewOf(s *groups.State, skipped []groups.Skip) stateView {
	return stateView{
		Group:     s.Group.String(),
		Lifecycle: s.Lifecycle.String(),
		Metadata:  s.Metadata,
		Admins:    s.AdminList(),
		Members:   s.MemberList(),
		Pending:   keys(s.Pending),
		Roles:     s.Roles,
		Retracted: keys(s.Retracted),
		Invites:   keys(s.Invites),
		UpdatedAt: int64(s.UpdatedAt),
		Skipped:   skipped,
	}
}

func runFold(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 1, commands["fold"].usage); err != nil {
		return err
	}
	g, err := a.group(args[0])
	if err != nil {
		return err
	}
	store, err := a.events()
	if err != nil {
		return err
	}

	var evs []*events.Event
	for _, f := range groups.Selector(g) {
		f.Limit = maxFoldEvents
		matched, err := store.QueryEvents(ctx, f)
		if err != nil {
			return err
		}
		evs = append(evs, matched...)
	}

	var opts []groups.Option
	if a.cfg.Groups.VerifySignatures {
		opts = append(opts, groups.WithVerification())
	}
	if relayKeys, _ := a.flags.GetStringSlice("relay-key"); len(relayKeys) > 0 {
		opts = append(opts, groups.WithAuthorizer(groups.RequireAdmin(relayKeys...)), groups.WithCreatorAsAdmin())
	}

	state, skipped := groups.Fold(g, evs, opts...)
	for _, s := range skipped {
		logging.Debug("Skipped group event", logging.Fields{"id": s.ID, "kind": s.Kind, "reason": s.Reason})
	}

	if persist, _ := a.flags.GetBool("persist"); persist {
		db, err := a.states()
		if err != nil {
			return err
		}
		if err := db.Save(ctx, state); err != nil {
			return err
		}
	}
	return a.write(viewOf(state, skipped))
}

func runQuery(ctx context.Context, a *app, args []string) error {
	if err := needArgs(args, 1, commands["query"].usage); err != nil {
		return err
	}
	f, err := filter.Decode([]byte(args[0]))
	if err != nil {
		return err
	}
	store, err := a.events()
	if err != nil {
		return err
	}
	matched, err := store.QueryEvents(ctx, f)
	if err != nil {
		return err
	}

	sub := envelope.NewSubscriptionID()
	for _, ev := range matched {
		if err := a.write(envelope.EventEnvelope{SubscriptionID: sub, Event: ev}); err != nil {
			return err
		}
	}
	return a.write(envelope.EOSEEnvelope(sub))
}
