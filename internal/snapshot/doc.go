// Package snapshot maintains the in-memory table of hub entities,
// registry metadata, devices, areas, and scene configurations.
//
// A Store is populated once per connection from the bulk fetches and
// then patched entity-by-entity from state_changed events. It is
// discarded on disconnect and rebuilt fresh on reconnect; nothing in
// it survives a connection.
//
// All methods are safe for concurrent use.
package snapshot
