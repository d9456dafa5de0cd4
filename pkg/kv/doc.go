// Package kv provides the ordered key/value storage primitives foldcore is
// built on.
//
// # Overview
//
// Engine wraps a single go.etcd.io/bbolt database file. Each logical tree
// (atoms, refs, schemas, transforms, metadata) is a bolt bucket, created
// lazily on first use. Writes are durable before Put returns (bolt commits
// and fsyncs on every read-write transaction); reads and prefix scans run
// inside read-only transactions and never block writers for long.
//
// # Trees
//
//	engine.Tree("atoms").Put(id, data)
//	engine.Tree("refs").ScanPrefix("", func(k string, v []byte) bool { ... })
//
// # Durability
//
// A crash immediately after Put returns must leave the value readable — this
// is bolt's default NoSync=false behavior, left untouched here.
package kv
