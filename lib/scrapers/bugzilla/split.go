package bugzilla

import (
	"bugvault/lib/archive"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// SplitAttachments extracts every attachment payload still inlined in the
// given batches into its own file under the archive's attachment directory,
// then rewrites each touched batch with the inline data stripped (the
// attachid and the encoding tag stay behind as the reference).
//
// The returned set holds the ids of all payloads that were inline in the
// given batches, whether extracted now or found already on disk.
//
// Ordering matters for crash recovery: attachments are committed before the
// batch rewrite, so a crash in between leaves a still-inline batch whose
// payloads are already extracted. Re-running re-attempts the extraction,
// which is a no-op for any attachment already under its canonical name.
func SplitAttachments(ctx context.Context, arc *archive.Archive, batches []archive.Batch) (map[int]struct{}, error) {
	ctx, span := tracer.Start(ctx, "SplitAttachments")
	defer span.End()

	extracted := map[int]struct{}{}
	for _, batch := range batches {
		if err := splitBatch(ctx, arc, batch, extracted); err != nil {
			return nil, err
		}
	}
	return extracted, nil
}

func splitBatch(ctx context.Context, arc *archive.Archive, batch archive.Batch, extracted map[int]struct{}) error {
	ctx, span := tracer.Start(ctx, "splitBatch")
	defer span.End()

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(batch.Path); err != nil {
		return fmt.Errorf("parse batch %s: %w", batch.Path, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "bugzilla" {
		return fmt.Errorf("batch %s: not a bugzilla document", batch.Path)
	}

	changed := false
	for _, bug := range root.SelectElements("bug") {
		for _, att := range bug.SelectElements("attachment") {
			data := att.SelectElement("data")
			if data == nil || strings.TrimSpace(data.Text()) == "" {
				continue
			}

			id, err := attachmentId(att)
			if err != nil {
				return fmt.Errorf("batch %s: %w", batch.Path, err)
			}
			encoding := data.SelectAttrValue("encoding", "")
			if encoding != "base64" {
				return fmt.Errorf(
					"batch %s: attachment %d has unexpected payload encoding %q",
					batch.Path, id, encoding,
				)
			}

			if !arc.HasAttachment(id) {
				decoded, err := base64.StdEncoding.DecodeString(
					strings.Join(strings.Fields(data.Text()), ""),
				)
				if err != nil {
					return fmt.Errorf("batch %s: decode attachment %d: %w", batch.Path, id, err)
				}
				path, _, err := arc.CommitAttachment(id, bytes.NewReader(decoded))
				if err != nil {
					return err
				}
				slog.InfoContext(ctx, "extracted attachment", "id", id, "path", path)
			}
			extracted[id] = struct{}{}

			data.SetText("")
			changed = true
		}
	}

	if !changed {
		return nil
	}
	contents, err := doc.WriteToBytes()
	if err != nil {
		return err
	}
	if err := arc.RewriteBatch(batch, contents); err != nil {
		return err
	}
	slog.InfoContext(ctx, "stripped inline payloads from batch", "index", batch.Index)
	return nil
}

func attachmentId(att *etree.Element) (int, error) {
	idElem := att.SelectElement("attachid")
	if idElem == nil {
		return 0, fmt.Errorf("attachment node has no attachid")
	}
	id, err := strconv.Atoi(strings.TrimSpace(idElem.Text()))
	if err != nil {
		return 0, fmt.Errorf("bad attachid %q: %w", idElem.Text(), err)
	}
	return id, nil
}
