package bugzilla

import (
	"bugvault/lib/archive"
	"context"
	"log/slog"
)

// ArchivedBugIds recomputes, from disk, the set of bug ids already present in
// committed batches. Running this fresh at the start of every invocation is
// what makes the pipeline idempotent.
func ArchivedBugIds(ctx context.Context, arc *archive.Archive) (map[int]struct{}, error) {
	ctx, span := tracer.Start(ctx, "ArchivedBugIds")
	defer span.End()

	batches, err := arc.Batches()
	if err != nil {
		return nil, err
	}

	ids := map[int]struct{}{}
	for _, batch := range batches {
		bugs, err := ParseBatchFile(batch.Path)
		if err != nil {
			return nil, err
		}
		for _, bug := range bugs {
			ids[bug.Id] = struct{}{}
		}
	}
	slog.InfoContext(ctx, "scanned archive", "batches", len(batches), "bugs", len(ids))
	return ids, nil
}

// ReferencedAttachmentIds collects every attachment id referenced by any
// committed batch, inline or not.
func ReferencedAttachmentIds(ctx context.Context, arc *archive.Archive) (map[int]struct{}, error) {
	ctx, span := tracer.Start(ctx, "ReferencedAttachmentIds")
	defer span.End()

	batches, err := arc.Batches()
	if err != nil {
		return nil, err
	}

	ids := map[int]struct{}{}
	for _, batch := range batches {
		bugs, err := ParseBatchFile(batch.Path)
		if err != nil {
			return nil, err
		}
		for _, bug := range bugs {
			for _, att := range bug.Attachments {
				ids[att.Id] = struct{}{}
			}
		}
	}
	slog.InfoContext(ctx, "collected attachment references", "count", len(ids))
	return ids, nil
}
