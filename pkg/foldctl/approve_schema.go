package foldctl

import (
	"flag"
	"fmt"
)

func newApproveSchemaCommand() *Command {
	cmd := &Command{
		Name:        "approve-schema",
		Description: "Transition a schema from Available to Approved",
		Flags:       flag.NewFlagSet("approve-schema", flag.ExitOnError),
		Run:         runApproveSchema,
	}
	cmd.Flags.String("db", "", "Path to the bbolt database file")
	cmd.Flags.String("name", "", "Schema name")
	return cmd
}

func runApproveSchema(args []string) error {
	cmd := newApproveSchemaCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	dbPath := cmd.Flags.Lookup("db").Value.String()
	name := cmd.Flags.Lookup("name").Value.String()
	if err := requiredFlag("name", name); err != nil {
		return err
	}

	s, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	updated, err := s.schemas.Approve(name)
	if err != nil {
		return fmt.Errorf("approve schema: %w", err)
	}
	fmt.Printf("schema %q is now %q\n", updated.Name, updated.State)
	return nil
}
