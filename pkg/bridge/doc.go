// Package bridge is the surface the game server uses to talk to the web
// application.
//
// A Service combines the linking policy, the identity cache and the group
// resolver built from one configuration:
//
//	svc := bridge.New(cfg, conn.DB(), conn.Dialect(), bridge.WithMetrics(metrics), bridge.WithLogger(log))
//	defer svc.Close()
//
//	userID := svc.GetUserIDForPlayer(ctx, bridge.Player{UUID: uuid, Name: name})
//	primary := svc.PrimaryGroupOf(ctx, userID)
//	secondary, err := svc.SecondaryGroupsOf(ctx, userID)
//
// The game server itself is reached through PlayerDirectory, which the
// Reminder uses to message or kick players who never linked an account.
package bridge
