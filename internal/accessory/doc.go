// Package accessory converts the entity snapshot into a
// platform-neutral accessory graph.
//
// Rooms come from areas, accessories from device groups (or orphan
// entities), and services from individual capability-bearing entities.
// Every service carries a sparse set of characteristic identifiers,
// one per capability the entity actually supports.
//
// Identifiers are deterministic 128-bit values derived from entity and
// capability names, so they are stable across sessions and rebuilds.
// Reverse indices answer identifier-to-entity lookups in O(1).
package accessory
