// Package version provides version information for the price-api application.
package version

// Version is the current version of the price-api application.
const Version = "1.0.0"

// AgentString returns the full agent string with versioning.
// Format: price-api/v{version}
func AgentString() string {
	return "price-api/v" + Version
}
