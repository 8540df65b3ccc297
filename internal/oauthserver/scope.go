package oauthserver

import "strings"

// splitScopes parses an RFC 6749 §3.3 space-delimited scope string.
func splitScopes(scope string) []string {
	fields := strings.Fields(scope)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func joinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}
