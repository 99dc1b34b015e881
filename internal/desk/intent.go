package desk

import (
	"encoding/json"
	"fmt"
)

// Intent is the closed set of request categories. The router matches on it
// exhaustively; anything outside the set parses to IntentUnknown.
type Intent int

const (
	IntentUnset Intent = iota
	IntentHR
	IntentIT
	IntentFinance
	IntentMultiIntent
	IntentGreeting
	IntentUnknown
)

var intentNames = map[Intent]string{
	IntentUnset:       "",
	IntentHR:          "HR",
	IntentIT:          "IT",
	IntentFinance:     "Finance",
	IntentMultiIntent: "Multi-intent",
	IntentGreeting:    "Greeting",
	IntentUnknown:     "Unknown",
}

func (i Intent) String() string {
	if name, ok := intentNames[i]; ok {
		return name
	}
	return "Unknown"
}

// IsDomain reports whether the intent maps to a domain agent.
func (i Intent) IsDomain() bool {
	return i == IntentHR || i == IntentIT || i == IntentFinance
}

// ParseIntent maps a classifier label to an Intent. Unrecognized labels
// resolve to IntentUnknown so the router escalates them.
func ParseIntent(label string) Intent {
	switch label {
	case "HR":
		return IntentHR
	case "IT":
		return IntentIT
	case "Finance":
		return IntentFinance
	case "Multi-intent", "MultiIntent":
		return IntentMultiIntent
	case "Greeting":
		return IntentGreeting
	default:
		return IntentUnknown
	}
}

// MarshalJSON serializes the intent as its label.
func (i Intent) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON parses an intent label.
func (i *Intent) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("intent label: %w", err)
	}
	if label == "" {
		*i = IntentUnset
		return nil
	}
	*i = ParseIntent(label)
	return nil
}
