package foldctl

import (
	"flag"
	"fmt"
)

func newBlockSchemaCommand() *Command {
	cmd := &Command{
		Name:        "block-schema",
		Description: "Transition a schema from Approved to Blocked (terminal)",
		Flags:       flag.NewFlagSet("block-schema", flag.ExitOnError),
		Run:         runBlockSchema,
	}
	cmd.Flags.String("db", "", "Path to the bbolt database file")
	cmd.Flags.String("name", "", "Schema name")
	return cmd
}

func runBlockSchema(args []string) error {
	cmd := newBlockSchemaCommand()
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

	updated, err := s.schemas.Block(name)
	if err != nil {
		return fmt.Errorf("block schema: %w", err)
	}
	fmt.Printf("schema %q is now %q\n", updated.Name, updated.State)
	return nil
}
