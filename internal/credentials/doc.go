// Package credentials persists the hub endpoint and access token
// between runs.
//
// A single-row SQLite store backs the default Provider. The token is
// stored as given; it is a long-lived Home Assistant access token the
// bridge needs verbatim to authenticate, so hashing is not an option
// here.
package credentials
