// Package schema implements the Schema state machine and field permission
// policy that gate every query and mutation in foldcore.
//
// # Overview
//
// A Schema owns a set of named FieldDefs and moves through three states:
// Available -> Approved -> Blocked. Only Approved schemas accept queries or
// mutations; Blocked is terminal. State transitions publish SchemaChanged
// and SchemaLoaded events on the bus so the orchestrator can reload its
// field->transform indices.
package schema
