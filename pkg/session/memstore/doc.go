// Package memstore is the default session store: sessions live in process
// memory, expire after their TTL and are swept by a janitor goroutine.
package memstore
