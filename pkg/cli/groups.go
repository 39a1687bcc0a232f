package cli

import (
	"flag"
	"fmt"
	"net/url"
	"strings"

	"github.com/platinummonkey/communitybridge/pkg/api"
)

func newGroupsCommand() *Command {
	cmd := &Command{
		Name:        "groups",
		Description: "Show the groups of a user",
		Flags:       flag.NewFlagSet("groups", flag.ExitOnError),
		Run:         runGroups,
	}
	cmd.Flags.String("user", "", "User id")
	serverFlag(cmd.Flags)
	return cmd
}

func runGroups(args []string) error {
	cmd := newGroupsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	userID := cmd.Flags.Lookup("user").Value.String()
	if userID == "" {
		return fmt.Errorf("user is required")
	}

	var resp api.UserGroupsResponse
	c := newClient(cmd.Flags.Lookup("server").Value.String())
	if err := c.get("/v1/users/"+url.PathEscape(userID)+"/groups", nil, &resp); err != nil {
		return fmt.Errorf("failed to get groups of user %s: %w", userID, err)
	}

	primary := resp.Primary
	if primary == "" {
		primary = "-"
	}
	fmt.Printf("Primary:   %s\n", primary)
	fmt.Printf("Secondary: %s\n", strings.Join(resp.Secondary, ", "))
	return nil
}

func newMembersCommand() *Command {
	cmd := &Command{
		Name:        "members",
		Description: "List the users in a group",
		Flags:       flag.NewFlagSet("members", flag.ExitOnError),
		Run:         runMembers,
	}
	cmd.Flags.String("group", "", "Group id")
	cmd.Flags.String("scope", "both", "primary, secondary or both")
	serverFlag(cmd.Flags)
	return cmd
}

func runMembers(args []string) error {
	cmd := newMembersCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	groupID := cmd.Flags.Lookup("group").Value.String()
	if groupID == "" {
		return fmt.Errorf("group is required")
	}

	var resp api.GroupUsersResponse
	c := newClient(cmd.Flags.Lookup("server").Value.String())
	query := url.Values{"scope": {cmd.Flags.Lookup("scope").Value.String()}}
	if err := c.get("/v1/groups/"+url.PathEscape(groupID)+"/users", query, &resp); err != nil {
		return fmt.Errorf("failed to list members of %s: %w", groupID, err)
	}

	for _, userID := range resp.Users {
		fmt.Println(userID)
	}
	return nil
}
