package schema

import "sort"

// RegisterTransform attaches transformID to name's field-to-transform index
// under field. Idempotent: re-registering the same pair is a no-op.
func (c *SchemaCore) RegisterTransform(name, field, transformID string) error {
	l := c.lockFor(name)
	l.Lock()
	defer l.Unlock()

	s, err := c.getLocked(name)
	if err != nil {
		return err
	}
	fd, ok := s.Fields[field]
	if !ok {
		fd = &FieldDef{}
		s.Fields[field] = fd
	}
	for _, id := range fd.Transforms {
		if id == transformID {
			return nil
		}
	}
	fd.Transforms = append(fd.Transforms, transformID)
	sort.Strings(fd.Transforms)
	return c.putLocked(s)
}

// DeregisterTransform removes transformID from name's field transform list.
func (c *SchemaCore) DeregisterTransform(name, field, transformID string) error {
	l := c.lockFor(name)
	l.Lock()
	defer l.Unlock()

	s, err := c.getLocked(name)
	if err != nil {
		return err
	}
	fd, ok := s.Fields[field]
	if !ok {
		return nil
	}
	kept := fd.Transforms[:0]
	for _, id := range fd.Transforms {
		if id != transformID {
			kept = append(kept, id)
		}
	}
	fd.Transforms = kept
	return c.putLocked(s)
}
