package config

// GetAuthSkipperPaths returns a list of paths to skip authentication for
func GetAuthSkipperPaths() []string {
	// Public read paths (availability queries and GraphQL are read-only, no auth)
	return []string{"/api/availability/:id", "/api/pools/:id/calendar", "/api/pools/:id/price", "/graphql"}
}
