package cli

import (
	"errors"
	"flag"
	"fmt"
	"net/url"

	"github.com/platinummonkey/communitybridge/pkg/api"
)

func newLookupCommand() *Command {
	cmd := &Command{
		Name:        "lookup",
		Description: "Find the user linked to a player",
		Flags:       flag.NewFlagSet("lookup", flag.ExitOnError),
		Run:         runLookup,
	}
	cmd.Flags.String("uuid", "", "Player UUID")
	cmd.Flags.String("name", "", "Player name")
	serverFlag(cmd.Flags)
	return cmd
}

// runLookup accepts either -uuid/-name or a single identifier argument
func runLookup(args []string) error {
	cmd := newLookupCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	uuid := cmd.Flags.Lookup("uuid").Value.String()
	name := cmd.Flags.Lookup("name").Value.String()
	c := newClient(cmd.Flags.Lookup("server").Value.String())

	var resp api.UserIDResponse
	var err error
	switch {
	case uuid != "" || name != "":
		err = c.get("/v1/players/user", url.Values{"uuid": {uuid}, "name": {name}}, &resp)
	case cmd.Flags.NArg() == 1:
		err = c.get("/v1/identities/"+url.PathEscape(cmd.Flags.Arg(0)), nil, &resp)
	default:
		return fmt.Errorf("a uuid, a name or one identifier argument is required")
	}

	if errors.Is(err, errNotFound) {
		fmt.Println("not linked")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println(resp.UserID)
	return nil
}

func newUUIDCommand() *Command {
	cmd := &Command{
		Name:        "uuid",
		Description: "Find the player linked to a user",
		Flags:       flag.NewFlagSet("uuid", flag.ExitOnError),
		Run:         runUUID,
	}
	cmd.Flags.String("user", "", "User id")
	serverFlag(cmd.Flags)
	return cmd
}

func runUUID(args []string) error {
	cmd := newUUIDCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	userID := cmd.Flags.Lookup("user").Value.String()
	if userID == "" {
		return fmt.Errorf("user is required")
	}

	var resp api.UUIDResponse
	err := newClient(cmd.Flags.Lookup("server").Value.String()).get("/v1/users/"+url.PathEscape(userID)+"/uuid", nil, &resp)
	if errors.Is(err, errNotFound) {
		fmt.Println("not linked")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println(resp.UUID)
	return nil
}

func newForgetCommand() *Command {
	cmd := &Command{
		Name:        "forget",
		Description: "Drop a player's cached ids",
		Flags:       flag.NewFlagSet("forget", flag.ExitOnError),
		Run:         runForget,
	}
	cmd.Flags.String("uuid", "", "Player UUID")
	cmd.Flags.String("name", "", "Player name")
	serverFlag(cmd.Flags)
	return cmd
}

func runForget(args []string) error {
	cmd := newForgetCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	uuid := cmd.Flags.Lookup("uuid").Value.String()
	name := cmd.Flags.Lookup("name").Value.String()
	if uuid == "" && name == "" {
		return fmt.Errorf("uuid or name is required")
	}

	c := newClient(cmd.Flags.Lookup("server").Value.String())
	if err := c.delete("/v1/cache/players", url.Values{"uuid": {uuid}, "name": {name}}); err != nil {
		return err
	}
	fmt.Println("forgotten")
	return nil
}

func newStatsCommand() *Command {
	cmd := &Command{
		Name:        "stats",
		Description: "Show identity cache counters",
		Flags:       flag.NewFlagSet("stats", flag.ExitOnError),
		Run:         runStats,
	}
	serverFlag(cmd.Flags)
	return cmd
}

func runStats(args []string) error {
	cmd := newStatsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	var resp api.CacheStatsResponse
	if err := newClient(cmd.Flags.Lookup("server").Value.String()).get("/v1/cache/stats", nil, &resp); err != nil {
		return err
	}
	fmt.Printf("Linking method: %s\n", resp.LinkingMethod)
	fmt.Printf("Entries:        %d/%d\n", resp.Entries, resp.Capacity)
	fmt.Printf("Hits:           %d\n", resp.Hits)
	fmt.Printf("Misses:         %d\n", resp.Misses)
	fmt.Printf("Flushes:        %d\n", resp.Flushes)
	return nil
}
