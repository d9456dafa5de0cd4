// Package foldctl implements the administrative command-line tool for a
// running foldcore store: loading schema documents, driving their
// Available/Approved/Blocked lifecycle, registering transforms, and issuing
// ad-hoc query/mutate calls — all against the embedded bbolt file directly,
// with no server process in between.
package foldctl

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// log is the CLI-facing logger: plain logrus, matching the teacher's own
// split between logrus for command-line tools and the structured
// pkg/observability logger for library/server code.
var log = logrus.WithField("component", "foldctl")

// Command represents a CLI command.
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command.
func NewRootCommand() *Command {
	root := &Command{
		Name:        "foldctl",
		Description: "foldctl - administrative CLI for an embedded foldcore store",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("foldctl", flag.ExitOnError),
	}

	root.Subcommands["load-schema"] = newLoadSchemaCommand()
	root.Subcommands["load-schemas"] = newLoadSchemasCommand()
	root.Subcommands["approve-schema"] = newApproveSchemaCommand()
	root.Subcommands["block-schema"] = newBlockSchemaCommand()
	root.Subcommands["list-schemas"] = newListSchemasCommand()
	root.Subcommands["register-transform"] = newRegisterTransformCommand()
	root.Subcommands["deregister-transform"] = newDeregisterTransformCommand()
	root.Subcommands["query"] = newQueryCommand()
	root.Subcommands["mutate"] = newMutateCommand()
	root.Subcommands["init-crypto"] = newInitCryptoCommand()
	root.Subcommands["crypto-status"] = newCryptoStatusCommand()

	return root
}

// Execute runs the command.
func (c *Command) Execute() error {
	args := os.Args[1:]
	if len(args) == 0 {
		return c.usage()
	}

	if args[0] == "-h" || args[0] == "--help" {
		return c.usage()
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		log.WithField("command", args[0]).Debug("executing foldctl command")
		if err := subcmd.Run(args[1:]); err != nil {
			log.WithField("command", args[0]).WithError(err).Error("command failed")
			return err
		}
		return nil
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage.
func (c *Command) usage() error {
	fmt.Printf("Usage: %s <command> [args]\n\n", c.Name)
	fmt.Printf("Commands:\n")
	for name, cmd := range c.Subcommands {
		fmt.Printf("  %-20s %s\n", name, cmd.Description)
	}
	return nil
}
