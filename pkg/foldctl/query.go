package foldctl

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"
)

func newQueryCommand() *Command {
	cmd := &Command{
		Name:        "query",
		Description: "Read one or more fields from an Approved schema",
		Flags:       flag.NewFlagSet("query", flag.ExitOnError),
		Run:         runQuery,
	}
	cmd.Flags.String("db", "", "Path to the bbolt database file")
	cmd.Flags.String("schema", "", "Schema name")
	cmd.Flags.String("fields", "", "Comma-separated field names")
	cmd.Flags.String("signer", "", "Signing-key identifier making the request")
	return cmd
}

func runQuery(args []string) error {
	cmd := newQueryCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	dbPath := cmd.Flags.Lookup("db").Value.String()
	schemaName := cmd.Flags.Lookup("schema").Value.String()
	fieldsRaw := cmd.Flags.Lookup("fields").Value.String()
	signer := cmd.Flags.Lookup("signer").Value.String()

	for _, req := range []struct{ name, val string }{
		{"schema", schemaName}, {"fields", fieldsRaw},
	} {
		if err := requiredFlag(req.name, req.val); err != nil {
			return err
		}
	}

	s, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	canQuery, err := s.schemas.CanQuery(schemaName)
	if err != nil {
		return fmt.Errorf("check schema state: %w", err)
	}
	if !canQuery {
		return fmt.Errorf("schema %q does not accept queries (not Approved)", schemaName)
	}

	result := make(map[string]json.RawMessage)
	for _, name := range strings.Split(fieldsRaw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		value, err := s.fields.ReadField(schemaName, name, signer)
		if err != nil {
			return fmt.Errorf("read %s.%s: %w", schemaName, name, err)
		}
		if value == nil {
			value = json.RawMessage("null")
		}
		result[name] = value
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
