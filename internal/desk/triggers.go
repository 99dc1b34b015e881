package desk

import (
	"regexp"
	"strconv"
	"strings"
)

// Tool trigger predicates. These are deliberately isolated pure functions:
// they decide side effects from text content alone, which is heuristic and
// fragile, so they stay out of the agents and get tested directly.

// ticketMarker is the phrase agents are prompted to emit when a ticket is
// needed.
const ticketMarker = "create a ticket"

// WantsTicket reports whether a generated reply signals that a support
// ticket should be opened.
func WantsTicket(reply string) bool {
	return strings.Contains(strings.ToLower(reply), ticketMarker)
}

var firstNumberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ReimbursementAmount extracts the claimed amount from a reimbursement
// query. The claim fires when the query mentions "reimbursement" and
// contains a number; the FIRST number anywhere in the text is taken as the
// amount, which misfires on unrelated numbers such as dates. Known
// fragility, preserved deliberately.
func ReimbursementAmount(query string) (float64, bool) {
	if !strings.Contains(strings.ToLower(query), "reimbursement") {
		return 0, false
	}
	match := firstNumberRe.FindString(query)
	if match == "" {
		return 0, false
	}
	amount, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}
