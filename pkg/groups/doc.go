// Package groups resolves primary and secondary group memberships of web
// application users.
//
// # Schema Variants
//
// The primary group is read from a table with one row per user (or, when
// UsesKey is set, one row per user and key). Secondary groups come in two
// shapes, chosen once by New from the configured storage method:
//
//	single, key         DelimitedColumnResolver  "4,7,9" in one column
//	junction, multiple  JunctionTableResolver    one row per membership
//
// The keyed methods ("key", "multiple") additionally require KeyColumn to
// equal KeyName.
//
// # Failures
//
// Disabled features return empty results without querying. Database errors
// are logged and become empty results, except in SecondaryGroupsOf which
// returns them as *storage.Error so that callers syncing groups can tell "no
// groups" from "lookup failed".
//
//	groupIDs, err := resolver.SecondaryGroupsOf(ctx, userID)
//	if storage.IsKind(err, storage.ConnectionFailure) {
//		// retry later, keep current groups
//	}
package groups
