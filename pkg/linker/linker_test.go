package linker

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/communitybridge/pkg/identity"
)

type mapLookup struct {
	mu      sync.Mutex
	userIDs map[string]string
	uuids   map[string]string
	queries []string
}

func (m *mapLookup) ResolveUserID(_ context.Context, identifier string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, identifier)
	return m.userIDs[identifier]
}

func (m *mapLookup) ResolveUUID(_ context.Context, userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, "uuid-of:"+userID)
	return m.uuids[userID]
}

type matchRecorder struct {
	mu      sync.Mutex
	matches []string
}

func (r *matchRecorder) LinkResolved(matched string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, matched)
}

var steve = Player{UUID: "8667ba71-b85a-4004-af54-457a9734eed7", Name: "Steve"}

func newTestLinker(method Method, lookup *mapLookup, observer LinkObserver) *Linker {
	cache := identity.NewCache(100, lookup, nil, nil)
	return NewLinker(cache, lookup, method, observer, nil)
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		input string
		want  Method
	}{
		{"uuid", MethodUUID},
		{"UUID", MethodUUID},
		{"uuid-only", MethodUUID},
		{"name", MethodName},
		{" Names ", MethodName},
		{"both", MethodBoth},
		{"bot", MethodBoth},
		{"BOTH", MethodBoth},
		{"", 0},
		{"email", 0},
		{"uu", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMethod(tt.input))
		})
	}
}

func TestMethod_String(t *testing.T) {
	assert.Equal(t, "uuid", MethodUUID.String())
	assert.Equal(t, "name", MethodName.String())
	assert.Equal(t, "both", MethodBoth.String())
	assert.Equal(t, "none", Method(0).String())
}

func TestLinker_GetUserID(t *testing.T) {
	links := map[string]string{steve.UUID: "U1", steve.Name: "U2"}

	t.Run("uuid method", func(t *testing.T) {
		lookup := &mapLookup{userIDs: links}
		assert.Equal(t, "U1", newTestLinker(MethodUUID, lookup, nil).GetUserID(context.Background(), steve))
		assert.Equal(t, []string{steve.UUID}, lookup.queries)
	})

	t.Run("name method", func(t *testing.T) {
		lookup := &mapLookup{userIDs: links}
		assert.Equal(t, "U2", newTestLinker(MethodName, lookup, nil).GetUserID(context.Background(), steve))
		assert.Equal(t, []string{steve.Name}, lookup.queries)
	})

	t.Run("both prefers uuid", func(t *testing.T) {
		lookup := &mapLookup{userIDs: links}
		assert.Equal(t, "U1", newTestLinker(MethodBoth, lookup, nil).GetUserID(context.Background(), steve))
		assert.Equal(t, []string{steve.UUID}, lookup.queries)
	})

	t.Run("both falls back to name", func(t *testing.T) {
		lookup := &mapLookup{userIDs: map[string]string{steve.Name: "U2"}}
		recorder := &matchRecorder{}
		assert.Equal(t, "U2", newTestLinker(MethodBoth, lookup, recorder).GetUserID(context.Background(), steve))
		assert.Equal(t, []string{steve.UUID, steve.Name}, lookup.queries)
		assert.Equal(t, []string{"name"}, recorder.matches)
	})

	t.Run("uuid method never tries the name", func(t *testing.T) {
		lookup := &mapLookup{userIDs: map[string]string{steve.Name: "U2"}}
		recorder := &matchRecorder{}
		assert.Equal(t, "", newTestLinker(MethodUUID, lookup, recorder).GetUserID(context.Background(), steve))
		assert.Equal(t, []string{steve.UUID}, lookup.queries)
		assert.Equal(t, []string{"none"}, recorder.matches)
	})

	t.Run("unknown method resolves nothing", func(t *testing.T) {
		lookup := &mapLookup{userIDs: links}
		assert.Equal(t, "", newTestLinker(ParseMethod("email"), lookup, nil).GetUserID(context.Background(), steve))
		assert.Empty(t, lookup.queries)
	})

	t.Run("second call is served from cache", func(t *testing.T) {
		lookup := &mapLookup{userIDs: map[string]string{steve.Name: "U2"}}
		l := newTestLinker(MethodBoth, lookup, nil)
		l.GetUserID(context.Background(), steve)
		l.GetUserID(context.Background(), steve)
		assert.Len(t, lookup.queries, 2)
	})
}

func TestLinker_GetUserIDByIdentifier(t *testing.T) {
	lookup := &mapLookup{userIDs: map[string]string{"Steve": "U2"}}
	l := newTestLinker(MethodUUID, lookup, nil)

	assert.Equal(t, "U2", l.GetUserIDByIdentifier(context.Background(), " Steve "))
	assert.Equal(t, "", l.GetUserIDByIdentifier(context.Background(), "Alex"))
	assert.Equal(t, "", l.GetUserIDByIdentifier(context.Background(), ""))
}

func TestLinker_GetUUID(t *testing.T) {
	t.Run("answered from cache", func(t *testing.T) {
		lookup := &mapLookup{userIDs: map[string]string{steve.UUID: "U1"}}
		l := newTestLinker(MethodUUID, lookup, nil)
		l.GetUserID(context.Background(), steve)

		assert.Equal(t, steve.UUID, l.GetUUID(context.Background(), "U1"))
		assert.Equal(t, []string{steve.UUID}, lookup.queries)
	})

	t.Run("falls back to the resolver", func(t *testing.T) {
		lookup := &mapLookup{uuids: map[string]string{"U9": "c06f8906-4c8a-4911-9c29-ea1dbd1aab82"}}
		l := newTestLinker(MethodUUID, lookup, nil)

		assert.Equal(t, "c06f8906-4c8a-4911-9c29-ea1dbd1aab82", l.GetUUID(context.Background(), "U9"))
		assert.Equal(t, []string{"uuid-of:U9"}, lookup.queries)
	})

	t.Run("unknown user", func(t *testing.T) {
		l := newTestLinker(MethodUUID, &mapLookup{}, nil)
		assert.Equal(t, "", l.GetUUID(context.Background(), "U404"))
	})

	t.Run("blank user id", func(t *testing.T) {
		lookup := &mapLookup{}
		l := newTestLinker(MethodUUID, lookup, nil)
		assert.Equal(t, "", l.GetUUID(context.Background(), " "))
		assert.Empty(t, lookup.queries)
	})
}

func TestLinker_RemoveFromCache(t *testing.T) {
	alex := Player{UUID: "ec561538-f3fd-461d-aff5-086b22154bce", Name: "Alex"}
	lookup := &mapLookup{userIDs: map[string]string{steve.UUID: "U1", steve.Name: "U1", alex.UUID: "U3"}}
	l := newTestLinker(MethodBoth, lookup, nil)
	ctx := context.Background()

	l.GetUserIDByIdentifier(ctx, steve.UUID)
	l.GetUserIDByIdentifier(ctx, steve.Name)
	l.GetUserID(ctx, alex)
	require.Equal(t, 3, l.cache.Len())

	l.RemoveFromCache(ctx, steve.UUID, steve.Name)
	assert.Equal(t, 1, l.cache.Len())

	// Steve is looked up again, Alex is not.
	lookup.queries = nil
	l.GetUserID(ctx, steve)
	l.GetUserID(ctx, alex)
	assert.Equal(t, []string{steve.UUID}, lookup.queries)
}

func TestLinker_Warm(t *testing.T) {
	links := make(map[string]string)
	players := make([]Player, 0, 20)
	for i := 0; i < 20; i++ {
		p := Player{UUID: fmt.Sprintf("uuid-%d", i), Name: fmt.Sprintf("player%d", i)}
		players = append(players, p)
		if i%2 == 0 {
			links[p.UUID] = fmt.Sprintf("%d", i)
		}
	}
	lookup := &mapLookup{userIDs: links}
	l := newTestLinker(MethodBoth, lookup, nil)

	assert.Equal(t, 10, l.Warm(context.Background(), players, 3))
	// Linked players cache their uuid, unlinked ones cache both negatives.
	assert.Equal(t, 30, l.cache.Len())

	lookup.queries = nil
	assert.Equal(t, "4", l.GetUserID(context.Background(), players[4]))
	assert.Empty(t, lookup.queries)
}

func TestLinker_WarmCancelled(t *testing.T) {
	lookup := &mapLookup{userIDs: map[string]string{"uuid-0": "0"}}
	l := newTestLinker(MethodUUID, lookup, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0, l.Warm(ctx, []Player{{UUID: "uuid-0"}}, 0))
	assert.Empty(t, lookup.queries)
}
