package bugzilla

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
)

// Scope selects which part of the remote corpus to archive.
type Scope struct {
	Product string
	// optional, empty means every component of the product
	Component string
}

// ListBugIDs walks the buglist endpoint by offset until a page contributes no
// new ids, and returns the deduplicated, sorted result.
//
// Bugzilla silently caps the page size server-side, so a non-empty page never
// means "last page"; the only valid termination signal is a page with nothing
// new on it.
func (c *Client) ListBugIDs(ctx context.Context, scope Scope) ([]int, error) {
	ctx, span := tracer.Start(ctx, "ListBugIDs")
	defer span.End()

	seen := map[int]struct{}{}
	offset := 0
	for {
		req := c.http.R().
			SetContext(ctx).
			SetQueryParam("ctype", "csv").
			SetQueryParam("order", "bug_id").
			SetQueryParam("product", scope.Product).
			SetQueryParam("offset", strconv.Itoa(offset))
		if scope.Component != "" {
			req.SetQueryParam("component", scope.Component)
		}
		res, err := req.Get("buglist.cgi")
		if err != nil {
			return nil, err
		}
		if res.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("buglist.cgi: unexpected status %s", res.Status())
		}

		ids, err := parseBuglistCsv(res.Body())
		if err != nil {
			return nil, fmt.Errorf("buglist.cgi at offset %d: %w", offset, err)
		}

		added := 0
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				added++
			}
		}
		slog.InfoContext(
			ctx, "listed bug page",
			"offset", offset,
			"rows", len(ids),
			"new", added,
		)
		if added == 0 {
			break
		}
		offset += len(ids)
	}

	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

func parseBuglistCsv(body []byte) ([]int, error) {
	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	idColumn := -1
	for i, name := range rows[0] {
		if name == "bug_id" {
			idColumn = i
			break
		}
	}
	if idColumn < 0 {
		return nil, fmt.Errorf("csv response has no bug_id column")
	}

	var ids []int
	for _, row := range rows[1:] {
		id, err := strconv.Atoi(row[idColumn])
		if err != nil {
			return nil, fmt.Errorf("bad bug_id %q: %w", row[idColumn], err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
