package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-groups/lib/envelope"
	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/groups"
	"github.com/HORNET-Storage/hornet-groups/lib/retention"
	"github.com/HORNET-Storage/hornet-groups/lib/signing"
	"github.com/HORNET-Storage/hornet-groups/lib/types"
)

func testApp(t *testing.T, backend string, in string) (*app, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	key, err := signing.GeneratePrivateKey()
	require.NoError(t, err)
	nsec, err := signing.SerializePrivateKey(key)
	require.NoError(t, err)

	cfg := &types.Config{
		Store:    types.StoreConfig{Backend: backend, Path: dir + "/events", StatePath: dir + "/groups.db"},
		Groups:   types.GroupsConfig{Relay: "groups.example.com", VerifySignatures: true},
		Identity: types.IdentityConfig{PrivateKey: nsec},
	}
	out := new(bytes.Buffer)
	a := newApp(cfg, newFlagSet(), strings.NewReader(in), out)
	t.Cleanup(func() { a.close() })
	return a, out
}

func lines(t *testing.T, out *bytes.Buffer) []envelope.Envelope {
	t.Helper()
	var envs []envelope.Envelope
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		env, err := envelope.Parse([]byte(line))
		require.NoError(t, err, line)
		envs = append(envs, env)
	}
	out.Reset()
	return envs
}

func publishedEvent(t *testing.T, out *bytes.Buffer) *events.Event {
	t.Helper()
	envs := lines(t, out)
	require.Len(t, envs, 1)
	ev, ok := envs[0].(envelope.EventEnvelope)
	require.True(t, ok)
	return ev.Event
}

func TestOpenStoreBackends(t *testing.T) {
	for _, backend := range []string{"memory", "badger", "bolt", "graviton"} {
		t.Run(backend, func(t *testing.T) {
			store, err := openStore(types.StoreConfig{Backend: backend, Path: t.TempDir() + "/events"})
			require.NoError(t, err)
			require.NoError(t, store.Close())
		})
	}

	_, err := openStore(types.StoreConfig{Backend: "tape"})
	assert.Error(t, err)
}

func TestGroupIDFallsBackToConfiguredRelay(t *testing.T) {
	a, _ := testApp(t, "memory", "")

	g, err := a.group("pizza")
	require.NoError(t, err)
	assert.Equal(t, groups.MustParse("groups.example.com'pizza"), g)

	g, err = a.group("other.example.com'pasta")
	require.NoError(t, err)
	assert.Equal(t, "other.example.com", g.Relay)

	_, err = a.group("bad'id'here")
	assert.ErrorIs(t, err, groups.ErrInvalidGroupID)
}

func TestPublishIngestFoldQuery(t *testing.T) {
	ctx := context.Background()
	a, out := testApp(t, "badger", "")

	require.NoError(t, a.flags.Parse([]string{"--name", "Pizza", "--closed"}))
	require.NoError(t, runCreate(ctx, a, []string{"pizza"}))
	create := publishedEvent(t, out)
	require.NoError(t, events.Verify(create))

	member, err := signing.GenerateKeySigner()
	require.NoError(t, err)
	memberKey, err := member.PublicKey(ctx)
	require.NoError(t, err)
	require.NoError(t, runPutUser(ctx, a, []string{"pizza", memberKey}))
	put := publishedEvent(t, out)

	require.NoError(t, runMessage(ctx, a, []string{"pizza", "hello"}))
	msg := publishedEvent(t, out)

	var input strings.Builder
	for _, ev := range []*events.Event{create, put, msg, put} {
		b, err := envelope.Marshal(envelope.EventEnvelope{Event: ev})
		require.NoError(t, err)
		input.Write(b)
		input.WriteString("\n")
	}
	input.WriteString("not json\n")
	a.in = strings.NewReader(input.String())

	require.NoError(t, runIngest(ctx, a, nil))
	envs := lines(t, out)
	require.Len(t, envs, 5)
	for _, env := range envs[:3] {
		ok := env.(envelope.OKEnvelope)
		assert.True(t, ok.OK)
		assert.Empty(t, ok.Reason)
	}
	dup := envs[3].(envelope.OKEnvelope)
	assert.True(t, dup.OK)
	assert.Equal(t, "duplicate", envelope.Prefix(dup.Reason))
	assert.IsType(t, envelope.NoticeEnvelope(""), envs[4])

	require.NoError(t, a.flags.Set("persist", "true"))
	require.NoError(t, runFold(ctx, a, []string{"pizza"}))
	var view stateView
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	out.Reset()
	assert.Equal(t, "active", view.Lifecycle)
	assert.Equal(t, "Pizza", view.Metadata.Name)
	assert.Equal(t, groups.Closed, view.Metadata.Access)
	assert.Equal(t, []string{memberKey}, view.Members)

	db, err := a.states()
	require.NoError(t, err)
	saved, err := db.Load(ctx, groups.MustParse("groups.example.com'pizza"))
	require.NoError(t, err)
	assert.Equal(t, groups.Member, saved.Membership(memberKey))

	require.NoError(t, runQuery(ctx, a, []string{`{"kinds":[9],"#h":["pizza"]}`}))
	envs = lines(t, out)
	require.Len(t, envs, 2)
	assert.Equal(t, msg.ID, envs[0].(envelope.EventEnvelope).Event.ID)
	assert.IsType(t, envelope.EOSEEnvelope(""), envs[1])
}

func TestOKForRejected(t *testing.T) {
	ev := &events.Event{ID: "abc"}
	ok := okFor(ev, retention.Result{Status: retention.Rejected, Message: "invalid: bad signature"})
	assert.False(t, ok.OK)
	assert.Equal(t, "invalid", envelope.Prefix(ok.Reason))
}

func TestCommandTable(t *testing.T) {
	require.NotEmpty(t, commands)
	for name, cmd := range commands {
		assert.NotNil(t, cmd.run, name)
		assert.True(t, strings.HasPrefix(cmd.usage, name), name)
	}

	a, _ := testApp(t, "memory", "")
	err := runPutUser(context.Background(), a, []string{"pizza"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), commands["put-user"].usage)
}
