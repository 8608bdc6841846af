package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/michaelbrown/explorer/internal/sandbox"
)

// ExportMarkdown renders a run as a markdown document.
func ExportMarkdown(r *Run) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# Run %s\n\n", r.ID))
	b.WriteString(fmt.Sprintf("- **Outcome:** %s\n", r.Outcome))
	b.WriteString(fmt.Sprintf("- **Backend:** %s\n", r.Backend))
	b.WriteString(fmt.Sprintf("- **Duration:** %dms\n", r.DurationMS))
	b.WriteString(fmt.Sprintf("- **Created:** %s\n", r.CreatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString("\n---\n\n")

	b.WriteString(fmt.Sprintf("## Code\n\n```python\n%s\n```\n\n", strings.TrimRight(r.Source, "\n")))

	if r.Outcome == sandbox.OutcomeFailure {
		b.WriteString(fmt.Sprintf("## Error\n\n```\n%s\n```\n", r.Message))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("## Output\n\n```\n%s\n```\n", strings.TrimRight(r.Output, "\n")))
	if r.Truncated {
		b.WriteString("\n_Output was truncated._\n")
	}
	return b.String()
}

// ExportJSON renders a run as formatted JSON.
func ExportJSON(r *Run) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
