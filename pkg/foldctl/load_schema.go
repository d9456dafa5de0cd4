package foldctl

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/platinummonkey/foldcore/pkg/schema"
)

func newLoadSchemaCommand() *Command {
	cmd := &Command{
		Name:        "load-schema",
		Description: "Load a schema document (JSON) into the store",
		Flags:       flag.NewFlagSet("load-schema", flag.ExitOnError),
		Run:         runLoadSchema,
	}
	cmd.Flags.String("db", "", "Path to the bbolt database file")
	cmd.Flags.String("file", "", "Path to the schema JSON document")
	return cmd
}

func runLoadSchema(args []string) error {
	cmd := newLoadSchemaCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	dbPath := cmd.Flags.Lookup("db").Value.String()
	file := cmd.Flags.Lookup("file").Value.String()
	if err := requiredFlag("file", file); err != nil {
		return err
	}

	s, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}
	var doc schema.Schema
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse schema document: %w", err)
	}
	if err := s.schemas.Load(&doc); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	fmt.Printf("loaded schema %q in state %q\n", doc.Name, doc.State)
	return nil
}
