package foldctl

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/foldcore/pkg/transform"
)

func newRegisterTransformCommand() *Command {
	cmd := &Command{
		Name:        "register-transform",
		Description: "Register a transform: inputs, one output field, and its logic expression",
		Flags:       flag.NewFlagSet("register-transform", flag.ExitOnError),
		Run:         runRegisterTransform,
	}
	cmd.Flags.String("db", "", "Path to the bbolt database file")
	cmd.Flags.String("id", "", "Transform id")
	cmd.Flags.String("inputs", "", "Comma-separated schema.field input paths")
	cmd.Flags.String("output", "", "Output field path, schema.field")
	cmd.Flags.String("logic", "", "Transform logic expression")
	return cmd
}

func runRegisterTransform(args []string) error {
	cmd := newRegisterTransformCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	dbPath := cmd.Flags.Lookup("db").Value.String()
	id := cmd.Flags.Lookup("id").Value.String()
	inputsRaw := cmd.Flags.Lookup("inputs").Value.String()
	output := cmd.Flags.Lookup("output").Value.String()
	logic := cmd.Flags.Lookup("logic").Value.String()

	for _, req := range []struct{ name, val string }{
		{"id", id}, {"inputs", inputsRaw}, {"output", output}, {"logic", logic},
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

	t := &transform.Transform{
		ID:        id,
		Inputs:    inputs,
		Output:    output,
		Logic:     logic,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.transforms.Put(t); err != nil {
		return fmt.Errorf("register transform: %w", err)
	}

	for _, path := range inputs {
		schemaName, fieldName, err := splitSchemaField(path)
		if err != nil {
			return fmt.Errorf("input %q: %w", path, err)
		}
		if err := s.schemas.RegisterTransform(schemaName, fieldName, id); err != nil {
			return fmt.Errorf("index transform on %q: %w", path, err)
		}
	}

	fmt.Printf("registered transform %q: %s -> %s\n", id, strings.Join(inputs, ","), output)
	return nil
}

func splitSchemaField(path string) (string, string, error) {
	idx := strings.IndexByte(path, '.')
	if idx <= 0 || idx == len(path)-1 {
		return "", "", fmt.Errorf("expected schema.field, got %q", path)
	}
	return path[:idx], path[idx+1:], nil
}
