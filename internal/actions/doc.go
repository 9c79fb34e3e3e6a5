// Package actions translates characteristic writes into hub service
// calls.
//
// Each accessory characteristic maps onto one or more Home Assistant
// services; the Translator owns that mapping. It resolves a
// characteristic id back to its entity through the accessory mapper,
// picks the service and payload for the entity's domain, and dispatches
// through a ServiceCaller.
//
// Hue and saturation arrive as two separate writes but the hub accepts
// only a combined hs_color pair, so the Translator caches the pending
// half of the pair per entity until the hub confirms the color with a
// state change.
package actions
