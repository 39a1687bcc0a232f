// Package api serves the bridge over HTTP for hosts that do not embed it.
//
// Routes, all under /v1:
//
//	GET    /identities/{identifier}       user id linked to a uuid or player name
//	GET    /players/user?uuid=&name=      user id under the configured linking method
//	GET    /users/{userID}/uuid           in-game identifier linked to a user
//	GET    /users/{userID}/groups         primary and secondary groups
//	GET    /groups/{groupID}/users        members, scope=primary|secondary|both
//	DELETE /cache/players?uuid=&name=     forget a player's cached ids
//	GET    /cache/stats                   identity cache counters
//
// Lookups that find nothing answer 404. A failing secondary group query
// answers 502 with the failure kind in the body.
//
// The Server reads the live bridge.Service on every request, so a reload only
// has to call SetService.
package api
