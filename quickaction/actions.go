// Package quickaction orchestrates the named document-analysis workflows
// (date extraction, summaries, reply drafts, court preparation): it validates
// preconditions, enforces one run at a time via durable markers that survive
// a process restart, invokes the assistant backend, and turns results into
// chat messages and notifications.
package quickaction

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Action describes one predefined workflow.
type Action struct {
	Name        string
	Description string

	// RequiresExactlyOne restricts the action to a single selected document.
	RequiresExactlyOne bool
}

// The registry of actions the backend supports.
var registry = []Action{
	{
		Name:        "Extract Dates",
		Description: "Pull every date and deadline out of the selected documents",
	},
	{
		Name:        "Summarize Document",
		Description: "Produce a short summary of the selected documents",
	},
	{
		Name:               "Reply to Letter",
		Description:        "Draft a reply to a single selected letter",
		RequiresExactlyOne: true,
	},
	{
		Name:        "Prepare for Court",
		Description: "Produce a court-preparation brief from the selected documents",
	},
}

// Actions returns the registry in declaration order.
func Actions() []Action {
	out := make([]Action, len(registry))
	copy(out, registry)
	return out
}

// Find returns the action with the exact (case-insensitive) name.
func Find(name string) (Action, bool) {
	for _, a := range registry {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Action{}, false
}

// Resolve matches a user-supplied name to an action: exact match first, then
// the best fuzzy match ("extract" resolves to Extract Dates).
func Resolve(query string) (Action, bool) {
	if a, ok := Find(query); ok {
		return a, true
	}

	names := make([]string, len(registry))
	for i, a := range registry {
		names[i] = a.Name
	}
	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return Action{}, false
	}
	return registry[matches[0].Index], true
}
