package linker

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/communitybridge/pkg/identity"
)

// DefaultWarmWorkers bounds the concurrent lookups issued by Warm
const DefaultWarmWorkers = 4

// Method is the set of identifiers a linking method allows
type Method uint8

const (
	// MethodUUID resolves players by their UUID
	MethodUUID Method = 1 << iota
	// MethodName resolves players by their display name
	MethodName

	// MethodBoth tries the UUID first and falls back to the name
	MethodBoth = MethodUUID | MethodName
)

// ParseMethod reads a configured linking method. Only the prefix matters:
// "uui..." selects the UUID, "nam..." the name and "bot..." both. Anything
// else selects nothing, so every resolution returns "".
func ParseMethod(s string) Method {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "bot"):
		return MethodBoth
	case strings.HasPrefix(s, "uui"):
		return MethodUUID
	case strings.HasPrefix(s, "nam"):
		return MethodName
	}
	return 0
}

// Has reports whether m allows every identifier in other
func (m Method) Has(other Method) bool {
	return other != 0 && m&other == other
}

func (m Method) String() string {
	switch m {
	case MethodBoth:
		return "both"
	case MethodUUID:
		return "uuid"
	case MethodName:
		return "name"
	}
	return "none"
}

// Player is an in-game player handle
type Player struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// UUIDResolver is the inverse lookup used when the cache cannot answer
type UUIDResolver interface {
	ResolveUUID(ctx context.Context, userID string) string
}

// LinkObserver records the outcome of a player resolution
type LinkObserver interface {
	LinkResolved(matched string)
}

// Linker resolves players to web application user ids according to the
// configured linking method.
type Linker struct {
	cache    *identity.Cache
	resolver UUIDResolver
	method   Method
	observer LinkObserver
	log      *logrus.Logger
}

// NewLinker creates a linker. observer may be nil.
func NewLinker(cache *identity.Cache, resolver UUIDResolver, method Method, observer LinkObserver, log *logrus.Logger) *Linker {
	if log == nil {
		log = logrus.New()
	}
	return &Linker{
		cache:    cache,
		resolver: resolver,
		method:   method,
		observer: observer,
		log:      log,
	}
}

// Method returns the configured linking method
func (l *Linker) Method() Method {
	return l.method
}

// GetUserID resolves player. The UUID is tried first when the method allows
// it; the name is tried only if that produced nothing.
func (l *Linker) GetUserID(ctx context.Context, player Player) string {
	var userID string
	matched := "none"

	if l.method.Has(MethodUUID) {
		if userID = l.cache.Get(ctx, player.UUID); userID != "" {
			matched = "uuid"
		}
	}
	if userID == "" && l.method.Has(MethodName) {
		if userID = l.cache.Get(ctx, player.Name); userID != "" {
			matched = "name"
		}
	}

	if l.observer != nil {
		l.observer.LinkResolved(matched)
	}
	l.log.WithFields(logrus.Fields{
		"uuid":    player.UUID,
		"name":    player.Name,
		"method":  l.method.String(),
		"matched": matched,
	}).Debug("Resolved player")
	return userID
}

// GetUserIDByIdentifier resolves a single UUID or name, ignoring the
// linking method.
func (l *Linker) GetUserIDByIdentifier(ctx context.Context, identifier string) string {
	return l.cache.Get(ctx, strings.TrimSpace(identifier))
}

// GetUUID returns the in-game identifier linked to userID. Cached players are
// found by scanning the cache; everyone else costs a query.
func (l *Linker) GetUUID(ctx context.Context, userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ""
	}
	if identifier, ok := l.cache.ReverseLookup(userID); ok {
		return identifier
	}
	return l.resolver.ResolveUUID(ctx, userID)
}

// RemoveFromCache forgets both aliases of a player, typically on disconnect
func (l *Linker) RemoveFromCache(ctx context.Context, uuid, name string) {
	l.cache.Invalidate(ctx, uuid, name)
}

// Warm resolves players concurrently so their ids are cached before they are
// needed. It returns the number of players that resolved to a user id.
func (l *Linker) Warm(ctx context.Context, players []Player, workers int) int {
	if workers <= 0 {
		workers = DefaultWarmWorkers
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	linked := make([]bool, len(players))
	for i, player := range players {
		i, player := i, player
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			linked[i] = l.GetUserID(ctx, player) != ""
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		l.log.WithError(err).Warn("Cache warm-up interrupted")
	}

	count := 0
	for _, ok := range linked {
		if ok {
			count++
		}
	}
	l.log.WithFields(logrus.Fields{
		"players": len(players),
		"linked":  count,
	}).Info("Warmed identity cache")
	return count
}
