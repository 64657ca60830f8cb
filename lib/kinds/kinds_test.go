package kinds

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRanges(t *testing.T) {
	cases := []struct {
		kind Kind
		want StorageClass
	}{
		{1, Regular},
		{2, Regular},
		{9, Regular},
		{1063, Regular},
		{9999, Regular},
		{10000, Replaceable},
		{19999, Replaceable},
		{20000, Ephemeral},
		{29999, Ephemeral},
		{30000, Addressable},
		{39999, Addressable},
		{40000, Regular},
		{65535, Regular},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.kind), "kind %d", c.kind)
	}
}

func TestClassifyExceptions(t *testing.T) {
	assert.Equal(t, Replaceable, Classify(ProfileMetadata))
	assert.Equal(t, Replaceable, Classify(ContactList))
	assert.Equal(t, Regular, RangeClass(ProfileMetadata))

	exceptions := Default.Exceptions()
	require.GreaterOrEqual(t, len(exceptions), 2)
	assert.Equal(t, ProfileMetadata, exceptions[0].Kind)
	assert.Equal(t, ContactList, exceptions[1].Kind)
}

func TestClassifyOutsideDomainDefaultsToRegular(t *testing.T) {
	assert.Equal(t, Regular, Classify(-1))
	assert.Equal(t, Regular, Classify(70000))

	err := Validate(70000)
	assert.True(t, errors.Is(err, ErrUnsupportedKind))
	assert.NoError(t, Validate(30023))
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(Named(31922, "calendar-event", "date based calendar event")))
	assert.Equal(t, Addressable, r.Classify(31922))
	assert.Equal(t, "calendar-event", r.Name(31922))

	// carve an ephemeral kind out of the regular range
	require.NoError(t, r.Register(Info{Kind: 5999, Name: "typing", Class: Ephemeral}))
	assert.Equal(t, Ephemeral, r.Classify(5999))
	assert.Equal(t, Regular, r.Classify(5998))

	// idempotent
	require.NoError(t, r.Register(Info{Kind: 5999, Name: "typing", Class: Ephemeral}))

	// conflicting
	assert.Error(t, r.Register(Info{Kind: 5999, Name: "other", Class: Ephemeral}))
	assert.Error(t, r.Register(Info{Kind: 70000, Name: "too-big"}))
	assert.Error(t, r.Register(Info{Kind: 12}))
}

func TestGroupKindPredicates(t *testing.T) {
	for _, k := range []Kind{9000, 9001, 9002, 9005, 9007, 9008, 9009} {
		assert.True(t, IsGroupModeration(k), "kind %d", k)
		assert.True(t, IsGroupEvent(k), "kind %d", k)
	}
	for _, k := range []Kind{9003, 9004, 9006, 9010, 9021} {
		assert.False(t, IsGroupModeration(k), "kind %d", k)
	}

	for _, k := range []Kind{39000, 39001, 39002, 39003} {
		assert.True(t, IsGroupMetadata(k), "kind %d", k)
		assert.True(t, k.IsAddressable(), "kind %d", k)
	}
	assert.False(t, IsGroupMetadata(38999))
	assert.False(t, IsGroupMetadata(39004))

	assert.True(t, IsGroupUser(9021))
	assert.True(t, IsGroupUser(9022))
	assert.True(t, IsGroupEvent(GroupChatMessage))
	assert.False(t, IsGroupEvent(1))
	assert.False(t, IsGroupEvent(4))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "1(text-note)", TextNote.String())
	assert.Equal(t, "4242", Kind(4242).String())
}
