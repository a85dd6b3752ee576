package backend

import (
	"fmt"
	"strings"

	"github.com/parley-io/parley/pkg/protocol"
)

// Persona framing changes how a simulated reply is presented, never
// which evidence it uses.
const (
	PersonaPlanner    = "planner"
	PersonaResearcher = "researcher"
	PersonaWriter     = "writer"
)

// synthesize produces a deterministic reply for the agent's persona,
// citing retrieved evidence by title. Unknown agents get the
// researcher framing.
func synthesize(agentID, userText string, items []protocol.EvidenceItem) string {
	var b strings.Builder

	switch agentID {
	case PersonaPlanner:
		fmt.Fprintf(&b, "Here's how I'd approach %q:\n\n", userText)
		if len(items) == 0 {
			b.WriteString("No supporting evidence was retrieved, so this plan rests on general guidance only.\n")
			break
		}
		for i, ev := range items {
			fmt.Fprintf(&b, "%d. Review %q — %s\n", i+1, ev.Title, firstSentence(ev.Snippet))
		}
		fmt.Fprintf(&b, "\nEach step above is grounded in a retrieved source; start with %q.", items[0].Title)

	case PersonaWriter:
		fmt.Fprintf(&b, "Pulling the sources together on %q: ", userText)
		if len(items) == 0 {
			b.WriteString("no supporting evidence was retrieved, so take this as general guidance rather than a sourced answer.")
			break
		}
		titles := make([]string, len(items))
		for i, ev := range items {
			titles[i] = fmt.Sprintf("%q", ev.Title)
		}
		fmt.Fprintf(&b, "%s ", firstSentence(items[0].Snippet))
		fmt.Fprintf(&b, "Taken together, %s point the same way.", strings.Join(titles, ", "))

	default: // researcher framing
		fmt.Fprintf(&b, "Based on the retrieved evidence about %q:\n\n", userText)
		if len(items) == 0 {
			b.WriteString("No supporting evidence was retrieved for this query.")
			break
		}
		for _, ev := range items {
			fmt.Fprintf(&b, "- %q (%s): %s\n", ev.Title, ev.Source, firstSentence(ev.Snippet))
		}
	}

	return b.String()
}
