// Package linker decides which in-game identifiers are used to find a
// player's web application account.
//
// The linking method comes from configuration:
//
//	uuid  - the player's UUID only
//	name  - the player's display name only
//	both  - the UUID, then the name when the UUID is not linked
//
// Resolution stops at the first identifier that maps to a user id. All lookups
// go through the injected identity.Cache.
//
//	l := linker.NewLinker(cache, resolver, linker.ParseMethod("both"), metrics, log)
//	userID := l.GetUserID(ctx, linker.Player{UUID: uuid, Name: name})
package linker
