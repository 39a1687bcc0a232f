// Package cli implements cbctl, a small client for the CommunityBridge HTTP
// API.
//
//	cbctl lookup Notch
//	cbctl lookup -uuid 069a79f4-44e9-4726-a5be-fca90e38aaf5 -name Notch
//	cbctl uuid -user 42
//	cbctl groups -user 42
//	cbctl members -group builders -scope secondary
//	cbctl forget -name Notch
//	cbctl stats
//
// Every command takes -server, defaulting to $CB_SERVER or
// http://localhost:8080.
package cli
