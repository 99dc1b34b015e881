package desk

import "strings"

// Merge concatenates collected response fragments in order with a blank-line
// separator. Pure and total: an empty list merges to an empty string, and
// merging is associative over append order.
func Merge(fragments []string) string {
	return strings.Join(fragments, "\n\n")
}
