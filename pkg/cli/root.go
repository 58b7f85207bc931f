package cli

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
)

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
		Name:        "hawkcurl",
		Description: "hawkcurl - Hawk-signed HTTP client for the Export Wins MI API",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("hawkcurl", flag.ExitOnError),
	}

	root.Subcommands["request"] = newRequestCommand()
	root.Subcommands["sign"] = newSignCommand()
	root.Subcommands["check-credentials"] = newCheckCredentialsCommand()

	return root
}

// Execute runs the command
func (c *Command) Execute() error {
	args := os.Args[1:]
	if len(args) == 0 {
		return c.usage()
	}

	if strings.EqualFold(args[0], "-h") || strings.EqualFold(args[0], "--help") {
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
		fmt.Printf("  %-20s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
