// Package util provides small helpers shared across the codebase.
package util

import "strings"

// ShellQuote wraps a string in single quotes, escaping any existing single
// quotes, so remote shells treat it literally.
func ShellQuote(s string) string {
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// JoinOrDefault joins strings with ", " or returns the default value for
// empty slices.
func JoinOrDefault(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}

// Pluralize returns singular if count is 1, otherwise plural.
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// ShortResourceName returns the trailing segment of an Azure resource ID,
// which is the resource's display name.
func ShortResourceName(resourceID string) string {
	if idx := strings.LastIndex(resourceID, "/"); idx != -1 {
		return resourceID[idx+1:]
	}
	return resourceID
}
