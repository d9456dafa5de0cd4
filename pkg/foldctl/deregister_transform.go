package foldctl

import (
	"flag"
	"fmt"
	"strings"
)

func newDeregisterTransformCommand() *Command {
	cmd := &Command{
		Name:        "deregister-transform",
		Description: "Remove a transform from a field's trigger index",
		Flags:       flag.NewFlagSet("deregister-transform", flag.ExitOnError),
		Run:         runDeregisterTransform,
	}
	cmd.Flags.String("db", "", "Path to the bbolt database file")
	cmd.Flags.String("id", "", "Transform id")
	cmd.Flags.String("inputs", "", "Comma-separated schema.field input paths to deregister from")
	return cmd
}

func runDeregisterTransform(args []string) error {
	cmd := newDeregisterTransformCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	dbPath := cmd.Flags.Lookup("db").Value.String()
	id := cmd.Flags.Lookup("id").Value.String()
	inputsRaw := cmd.Flags.Lookup("inputs").Value.String()

	for _, req := range []struct{ name, val string }{
		{"id", id}, {"inputs", inputsRaw},
	} {
		if err := requiredFlag(req.name, req.val); err != nil {
			return err
		}
	}

	var inputs []string
	for _, p := range strings.Split(inputsRaw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			inputs = append(inputs, p)
		}
	}
	if len(inputs) == 0 {
		return fmt.Errorf("-inputs must name at least one schema.field path")
	}

	s, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, path := range inputs {
		schemaName, fieldName, err := splitSchemaField(path)
		if err != nil {
			return fmt.Errorf("input %q: %w", path, err)
		}
		if err := s.schemas.DeregisterTransform(schemaName, fieldName, id); err != nil {
			return fmt.Errorf("deregister transform on %q: %w", path, err)
		}
	}

	fmt.Printf("deregistered transform %q from %s\n", id, strings.Join(inputs, ","))
	return nil
}
