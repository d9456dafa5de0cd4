// Package field implements the field manager: the read/write surface that
// sits between a schema's FieldDefs and the underlying atom store, enforcing
// permission policy and publishing FieldValueSet notifications on write.
package field
