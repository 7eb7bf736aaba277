// Package valkey provides a Valkey storage backend for the hardening facade.
//
// Valkey is a high-performance key-value store that is wire-compatible with
// Redis. The Store type implements [storage.DocumentStore] and suits
// deployments that need documents shared between processes or kept across
// restarts.
//
// # Key Schema
//
// All keys use a configurable prefix (default "hardening:") to avoid conflicts
// with other applications sharing the same Valkey instance:
//
//	{prefix}doc:{collection}/{id}   -> JSON(document data)
//	{prefix}idx:{collection}        -> ZSET of document ids, score 0
//
// The index is ordered lexicographically, so Query and List walk a collection
// in id order with ZRANGEBYLEX and load documents with MGET.
//
// # Atomicity
//
// Writes run as Lua scripts that update the document and its index entry
// together. Merge and update writes read the document, apply the change in Go
// and commit it with a compare-and-set script, retrying when another writer
// got there first.
//
// # Usage
//
//	store, err := valkey.New(valkey.Config{
//	    Address:   "localhost:6379",
//	    KeyPrefix: "jobs:",
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
// Numbers read back as float64 and times as RFC 3339 strings, since documents
// are stored as JSON.
package valkey
