package bugzilla

import (
	"bugvault/lib/archive"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/progress"
)

// chunkSize is how many bugs go into one bulk show_bug.cgi request, and
// therefore into one committed batch file.
const chunkSize = 1000

// FetchBugs retrieves ids in order, chunkSize at a time, committing each bulk
// XML response as one batch file. Indices continue from whatever the archive
// already holds, so batches from earlier runs are never overwritten.
//
// A failure mid-chunk aborts the run; batches committed before the failure
// stay valid and are skipped when the scrape is re-run.
func (c *Client) FetchBugs(ctx context.Context, arc *archive.Archive, ids []int, pw progress.Writer) ([]archive.Batch, error) {
	ctx, span := tracer.Start(ctx, "FetchBugs")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	index, err := arc.NextBatchIndex()
	if err != nil {
		return nil, err
	}

	var batches []archive.Batch
	for start := 0; start < len(ids); start += chunkSize {
		chunk := ids[start:min(start+chunkSize, len(ids))]
		batch, err := c.fetchChunk(ctx, arc, index, chunk, pw)
		if err != nil {
			return batches, fmt.Errorf("fetch batch %d: %w", index, err)
		}
		batches = append(batches, batch)
		index++
	}
	return batches, nil
}

func (c *Client) fetchChunk(ctx context.Context, arc *archive.Archive, index int, chunk []int, pw progress.Writer) (archive.Batch, error) {
	ctx, span := tracer.Start(ctx, "fetchChunk")
	defer span.End()

	form := url.Values{}
	form.Set("ctype", "xml")
	for _, id := range chunk {
		form.Add("id", strconv.Itoa(id))
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetFormDataFromValues(form).
		Post("show_bug.cgi")
	if err != nil {
		return archive.Batch{}, err
	}
	body := res.RawBody()
	defer body.Close()
	if res.StatusCode() != http.StatusOK {
		return archive.Batch{}, fmt.Errorf("show_bug.cgi: unexpected status %s", res.Status())
	}

	reader, done := trackDownload(pw, fmt.Sprintf("batch %04d", index), res.RawResponse.ContentLength, body)
	batch, size, err := arc.CommitBatch(index, reader)
	done()
	if err != nil {
		return archive.Batch{}, err
	}

	slog.InfoContext(
		ctx, "committed batch",
		"index", index,
		"bugs", len(chunk),
		"size", humanize.Bytes(uint64(size)),
	)
	return batch, nil
}

// trackDownload wires a byte-count progress tracker in front of body. The
// tracker total is the content length when the server reports one. The
// returned func finishes the tracker once the stream has been consumed.
func trackDownload(pw progress.Writer, message string, total int64, body io.Reader) (io.Reader, func()) {
	if pw == nil {
		return body, func() {}
	}
	tracker := &progress.Tracker{
		Message: message,
		Total:   max(total, 0),
		Units:   progress.UnitsBytes,
	}
	pw.AppendTracker(tracker)
	return io.TeeReader(body, trackerWriter{tracker}), tracker.MarkAsDone
}

type trackerWriter struct {
	tracker *progress.Tracker
}

func (w trackerWriter) Write(p []byte) (int, error) {
	w.tracker.Increment(int64(len(p)))
	return len(p), nil
}
