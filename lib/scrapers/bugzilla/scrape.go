package bugzilla

import (
	"bugvault/lib/archive"
	"context"
	"log/slog"
	"slices"

	"github.com/jedib0t/go-pretty/v6/progress"
)

// Scrape runs the whole pipeline once, sequentially:
// list -> skip archived -> fetch batches -> split payloads -> fetch the
// attachments the remote left un-embedded.
//
// Every stage recomputes its skip set from the archive directory, so an
// interrupted run picks up where it left off simply by being re-invoked.
func Scrape(ctx context.Context, arc *archive.Archive, client *Client, scope Scope, pw progress.Writer) error {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	listed, err := client.ListBugIDs(ctx, scope)
	if err != nil {
		return err
	}

	archived, err := ArchivedBugIds(ctx, arc)
	if err != nil {
		return err
	}
	var pending []int
	for _, id := range listed {
		if _, ok := archived[id]; !ok {
			pending = append(pending, id)
		}
	}
	slog.InfoContext(
		ctx, "computed pending bugs",
		"listed", len(listed),
		"archived", len(archived),
		"pending", len(pending),
	)

	fetched, err := client.FetchBugs(ctx, arc, pending, pw)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "fetched batches", "count", len(fetched))

	// split every committed batch, not just the fresh ones: a crash during a
	// previous split can leave an older batch with payloads still inline
	batches, err := arc.Batches()
	if err != nil {
		return err
	}
	extracted, err := SplitAttachments(ctx, arc, batches)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "split inline payloads", "count", len(extracted))

	referenced, err := ReferencedAttachmentIds(ctx, arc)
	if err != nil {
		return err
	}
	onDisk, err := arc.AttachmentIDs()
	if err != nil {
		return err
	}
	var missing []int
	for id := range referenced {
		if _, ok := onDisk[id]; !ok {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)

	paths, err := client.FetchAttachments(ctx, arc, missing, pw)
	if err != nil {
		return err
	}
	slog.InfoContext(
		ctx, "scrape complete",
		"bugs_fetched", len(pending),
		"attachments_fetched", len(paths),
	)
	return nil
}
