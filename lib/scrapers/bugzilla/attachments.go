package bugzilla

import (
	"bugvault/lib/archive"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/progress"
)

// FetchAttachments retrieves, one at a time, every attachment in ids whose
// canonical file does not exist yet. The first failure aborts the run;
// attachments committed before it stay valid for the next invocation.
func (c *Client) FetchAttachments(ctx context.Context, arc *archive.Archive, ids []int, pw progress.Writer) ([]string, error) {
	ctx, span := tracer.Start(ctx, "FetchAttachments")
	defer span.End()

	var paths []string
	for _, id := range ids {
		if arc.HasAttachment(id) {
			continue
		}
		path, err := c.fetchAttachment(ctx, arc, id, pw)
		if err != nil {
			return paths, fmt.Errorf("fetch attachment %d: %w", id, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (c *Client) fetchAttachment(ctx context.Context, arc *archive.Archive, id int, pw progress.Writer) (string, error) {
	ctx, span := tracer.Start(ctx, "fetchAttachment")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetQueryParam("id", strconv.Itoa(id)).
		Get("attachment.cgi")
	if err != nil {
		return "", err
	}
	body := res.RawBody()
	defer body.Close()
	if res.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("attachment.cgi: unexpected status %s", res.Status())
	}

	reader, done := trackDownload(pw, fmt.Sprintf("attachment %d", id), res.RawResponse.ContentLength, body)
	path, size, err := arc.CommitAttachment(id, reader)
	done()
	if err != nil {
		return "", err
	}

	slog.InfoContext(
		ctx, "committed attachment",
		"id", id,
		"size", humanize.Bytes(uint64(size)),
	)
	return path, nil
}
