// Package config handles loading and validating Itsyhome bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validating the result before the bridge starts
//
// The loading order is:
//
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ITSYHOME_SECTION_KEY
// For example: ITSYHOME_SERVER_URL, ITSYHOME_LOG_LEVEL
//
// The access token should be supplied via ITSYHOME_TOKEN (or the
// persistent credential store) rather than committed to a config file.
package config
