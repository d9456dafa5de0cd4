// Package cryptometa stores the single crypto-metadata record (master
// public key, algorithm names, creation time, integrity checksum) and
// implements the envelope encryption wrapper that layers transparent
// at-rest encryption over a kv.Tree.
package cryptometa
