package foldctl

import (
	"flag"
	"fmt"

	"github.com/platinummonkey/foldcore/pkg/schema"
)

func newListSchemasCommand() *Command {
	cmd := &Command{
		Name:        "list-schemas",
		Description: "List schemas in a given state (available|approved|blocked)",
		Flags:       flag.NewFlagSet("list-schemas", flag.ExitOnError),
		Run:         runListSchemas,
	}
	cmd.Flags.String("db", "", "Path to the bbolt database file")
	cmd.Flags.String("state", "approved", "State to filter by")
	return cmd
}

func runListSchemas(args []string) error {
	cmd := newListSchemasCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	dbPath := cmd.Flags.Lookup("db").Value.String()
	state := cmd.Flags.Lookup("state").Value.String()

	s, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	schemas, err := s.schemas.ListByState(schema.State(state))
	if err != nil {
		return fmt.Errorf("list schemas: %w", err)
	}
	if len(schemas) == 0 {
		fmt.Printf("no schemas in state %q\n", state)
		return nil
	}
	for _, sch := range schemas {
		fmt.Printf("%s\t%s\t%d fields\n", sch.Name, sch.State, len(sch.Fields))
	}
	return nil
}
