// Package platform assembles the bridge: one hub connection, the
// entity snapshot behind it, the derived accessory graph, and the
// write path back to the hub.
//
// The Platform owns the lifecycle. Connect dials and authenticates,
// bulk-fetches states and registries, builds the accessory graph, and
// subscribes to state changes. From then on every state change patches
// the snapshot, triggers a graph rebuild when the entity set changed,
// and fans out characteristic updates to the registered callbacks. On
// reconnection the whole snapshot is fetched again, so identifiers
// stay stable while values catch up.
package platform
