package cli

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
)

// DefaultServer is the API address used when -server is not given
const DefaultServer = "http://localhost:8080"

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "cbctl",
		Description: "cbctl - query a running CommunityBridge",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("cbctl", flag.ExitOnError),
	}

	root.Subcommands["lookup"] = newLookupCommand()
	root.Subcommands["uuid"] = newUUIDCommand()
	root.Subcommands["forget"] = newForgetCommand()
	root.Subcommands["stats"] = newStatsCommand()
	root.Subcommands["groups"] = newGroupsCommand()
	root.Subcommands["members"] = newMembersCommand()

	return root
}

// Execute runs the command against os.Args
func (c *Command) Execute() error {
	return c.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the subcommand named by args[0]
func (c *Command) ExecuteArgs(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	switch strings.ToLower(args[0]) {
	case "-h", "--help", "help":
		return c.usage()
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Printf("Usage: %s <command> [args]\n\n", c.Name)
	fmt.Printf("Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

// serverFlag registers the common -server flag
func serverFlag(fs *flag.FlagSet) *string {
	return fs.String("server", envOr("CB_SERVER", DefaultServer), "CommunityBridge API URL")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
