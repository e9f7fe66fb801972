package importer

import (
	"fmt"
	"strings"

	"github.com/refkeeper/reference-import-service/internal/domain"
)

// RenderSummary renders the human-readable batch summary. Agents relay it
// verbatim, so it is plain text: a headline, then one line per record
// grouped by outcome.
func RenderSummary(r *domain.BatchReport) string {
	var b strings.Builder

	switch {
	case r.DestinationFailure != nil:
		nf := r.DestinationFailure
		fmt.Fprintf(&b, "Import aborted: collection %q not found. Nothing was written.\n", nf.Attempted)
		if len(nf.Suggestions) > 0 {
			fmt.Fprintf(&b, "Did you mean: %s?\n", strings.Join(nf.Suggestions, ", "))
		}
		if len(nf.Available) > 0 {
			names := make([]string, len(nf.Available))
			for i, opt := range nf.Available {
				names[i] = opt.Name
			}
			fmt.Fprintf(&b, "Available collections: %s\n", strings.Join(names, ", "))
		}
		return strings.TrimRight(b.String(), "\n")

	case r.Error != "" && r.Total == 0:
		fmt.Fprintf(&b, "Import failed: %s", r.Error)
		return b.String()
	}

	dest := "the library root"
	if r.Destination != nil {
		dest = fmt.Sprintf("%q", r.Destination.Name)
	}
	fmt.Fprintf(&b, "Processed %d record(s) for %s in %.2fs: %d added, %d skipped, %d with warnings, %d failed.\n",
		r.Total, dest, r.ElapsedTime, r.Added, r.Skipped, r.Warnings, r.Failed)

	if r.Error != "" {
		fmt.Fprintf(&b, "Batch error: %s\n", r.Error)
	}
	if r.Warning != "" {
		fmt.Fprintf(&b, "Note: %s\n", r.Warning)
	}

	writeSection(&b, "Added", r.AddedItems)
	writeSection(&b, "Skipped", r.SkippedItems)
	writeSection(&b, "Warnings", r.WarningItems)
	writeSection(&b, "Failed", r.FailedItems)

	return strings.TrimRight(b.String(), "\n")
}

// maxSectionLines caps each outcome bucket in the summary. Large batches
// get a remainder count instead of hundreds of lines.
const maxSectionLines = 10

// writeSection appends one outcome bucket to the summary.
func writeSection(b *strings.Builder, label string, items []domain.ImportOutcome) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	shown := items
	if len(shown) > maxSectionLines {
		shown = shown[:maxSectionLines]
	}
	for _, o := range shown {
		fmt.Fprintf(b, "  - %s", describeOutcome(o))
		b.WriteByte('\n')
	}
	if rest := len(items) - len(shown); rest > 0 {
		fmt.Fprintf(b, "  ... and %d more\n", rest)
	}
}

// describeOutcome renders one record line.
func describeOutcome(o domain.ImportOutcome) string {
	title := o.Title
	if title == "" {
		title = "(untitled)"
	}

	var id string
	switch {
	case o.PMID != "":
		id = " [PMID " + o.PMID + "]"
	case o.DOI != "":
		id = " [DOI " + o.DOI + "]"
	}

	switch {
	case o.Error != "":
		return fmt.Sprintf("%s%s: %s", title, id, o.Error)
	case o.Reason != "":
		return fmt.Sprintf("%s%s: %s", title, id, o.Reason)
	default:
		return title + id
	}
}
