package cli

import (
	"flag"
	"fmt"
	"strings"

	"github.com/exportwins/winsmi/pkg/credentials"
)

func newCheckCredentialsCommand() *Command {
	cmd := &Command{
		Name:        "check-credentials",
		Description: "Validate a credentials file and list the ids and scopes it defines",
		Flags:       flag.NewFlagSet("check-credentials", flag.ExitOnError),
		Run:         runCheckCredentials,
	}

	cmd.Flags.String("file", "/etc/winsmi/credentials.yaml", "Credentials file")

	return cmd
}

func runCheckCredentials(args []string) error {
	cmd := newCheckCredentialsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	path := cmd.Flags.Lookup("file").Value.String()
	creds, err := credentials.LoadFile(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d credentials\n", path, len(creds))
	for _, c := range creds {
		scopes := make([]string, len(c.Scopes))
		for i, s := range c.Scopes {
			scopes[i] = string(s)
		}
		fmt.Printf("  %-30s %s\n", c.ID, strings.Join(scopes, ","))
	}
	return nil
}
