package foldctl

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/platinummonkey/foldcore/pkg/field"
)

func newMutateCommand() *Command {
	cmd := &Command{
		Name:        "mutate",
		Description: "Write field values on an Approved schema (op: create|update|delete)",
		Flags:       flag.NewFlagSet("mutate", flag.ExitOnError),
		Run:         runMutate,
	}
	cmd.Flags.String("db", "", "Path to the bbolt database file")
	cmd.Flags.String("schema", "", "Schema name")
	cmd.Flags.String("op", "update", "Mutation kind: create|update|delete")
	cmd.Flags.String("data", "", "JSON object of field -> value to write")
	cmd.Flags.String("data-file", "", "Path to a JSON file of field -> value to write, instead of -data")
	cmd.Flags.String("signer", "", "Signing-key identifier performing the write")
	return cmd
}

func runMutate(args []string) error {
	cmd := newMutateCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	dbPath := cmd.Flags.Lookup("db").Value.String()
	schemaName := cmd.Flags.Lookup("schema").Value.String()
	op := cmd.Flags.Lookup("op").Value.String()
	data := cmd.Flags.Lookup("data").Value.String()
	dataFile := cmd.Flags.Lookup("data-file").Value.String()
	signer := cmd.Flags.Lookup("signer").Value.String()

	if err := requiredFlag("schema", schemaName); err != nil {
		return err
	}
	if op != "create" && op != "update" && op != "delete" {
		return fmt.Errorf("-op must be one of create, update, delete, got %q", op)
	}

	s, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	canMutate, err := s.schemas.CanMutate(schemaName)
	if err != nil {
		return fmt.Errorf("check schema state: %w", err)
	}
	if !canMutate {
		return fmt.Errorf("schema %q does not accept mutations (not Approved)", schemaName)
	}

	if op == "delete" {
		return fmt.Errorf("delete is not yet supported: atoms are append-only, there is no field tombstone op")
	}

	raw := []byte(data)
	if dataFile != "" {
		raw, err = os.ReadFile(dataFile)
		if err != nil {
			return fmt.Errorf("read data file: %w", err)
		}
	}
	if len(raw) == 0 {
		return fmt.Errorf("-data or -data-file is required")
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse data as a JSON object: %w", err)
	}

	// Every field write in this mutate() call shares one mutation id, so the
	// orchestrator collapses transform triggers from the same batch into one
	// run per transform.
	opt := field.WithMutationID(uuid.NewString())
	for name, value := range values {
		atomID, err := s.fields.WriteField(schemaName, name, value, signer, opt)
		if err != nil {
			return fmt.Errorf("write %s.%s: %w", schemaName, name, err)
		}
		fmt.Printf("%s.%s -> atom %s\n", schemaName, name, atomID)
	}
	return nil
}
