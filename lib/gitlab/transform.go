// Package gitlab turns a committed bugvault archive into a gitlab issue
// import document. This is a pure format mapping over already-durable files;
// it has no resumability or network concerns of its own.
package gitlab

import (
	"bugvault/lib/archive"
	"bugvault/lib/scrapers/bugzilla"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("gitlab")

type Issue struct {
	Iid         int      `json:"iid"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	State       string   `json:"state"`
	Labels      []string `json:"labels,omitempty"`
	Author      string   `json:"author"`
	Assignee    string   `json:"assignee,omitempty"`
	CreatedAt   string   `json:"created_at"`
	Notes       []Note   `json:"notes,omitempty"`
}

type Note struct {
	Author    string `json:"author"`
	CreatedAt string `json:"created_at"`
	Body      string `json:"body"`
}

type ImportDocument struct {
	Project string  `json:"project"`
	Issues  []Issue `json:"issues"`
}

// Transform maps every archived bug to an import issue. It expects the
// scrape to have completed: a batch still carrying inline attachment data is
// rejected rather than silently embedding megabytes of base64 into issue text.
func Transform(ctx context.Context, arc *archive.Archive, cfg Config) (ImportDocument, error) {
	ctx, span := tracer.Start(ctx, "Transform")
	defer span.End()

	batches, err := arc.Batches()
	if err != nil {
		return ImportDocument{}, err
	}

	doc := ImportDocument{Project: cfg.Project}
	for _, batch := range batches {
		bugs, err := bugzilla.ParseBatchFile(batch.Path)
		if err != nil {
			return ImportDocument{}, err
		}
		for _, bug := range bugs {
			issue, err := transformBug(cfg, bug)
			if err != nil {
				return ImportDocument{}, fmt.Errorf("batch %d: %w", batch.Index, err)
			}
			doc.Issues = append(doc.Issues, issue)
		}
	}

	slog.InfoContext(ctx, "transformed archive", "issues", len(doc.Issues))
	return doc, nil
}

func transformBug(cfg Config, bug bugzilla.Bug) (Issue, error) {
	state, ok := cfg.StatusMap[bug.Status]
	if !ok {
		return Issue{}, fmt.Errorf("bug %d: status %q has no mapping", bug.Id, bug.Status)
	}

	issue := Issue{
		Iid:       bug.Id,
		Title:     bug.Summary,
		State:     state,
		Author:    mapUser(cfg, bug.Reporter),
		Assignee:  mapUser(cfg, bug.AssignedTo),
		CreatedAt: bug.Created,
	}
	if label, ok := cfg.ResolutionLabels[bug.Resolution]; ok && bug.Resolution != "" {
		issue.Labels = append(issue.Labels, label)
	}
	if bug.Component != "" {
		issue.Labels = append(issue.Labels, "component::"+bug.Component)
	}

	var description strings.Builder
	if len(bug.Comments) > 0 {
		description.WriteString(bug.Comments[0].Text)
	}
	for _, att := range bug.Attachments {
		if att.Inline {
			return Issue{}, fmt.Errorf(
				"bug %d: attachment %d still has inline data, scrape has not completed",
				bug.Id, att.Id,
			)
		}
		fmt.Fprintf(
			&description, "\n\n**Attachment:** [%s](%s)",
			att.Filename,
			filepath.ToSlash(archive.AttachmentRef(att.Id)),
		)
	}
	issue.Description = description.String()

	if len(bug.Comments) > 1 {
		for _, comment := range bug.Comments[1:] {
			issue.Notes = append(issue.Notes, Note{
				Author:    mapUser(cfg, comment.Author),
				CreatedAt: comment.When,
				Body:      comment.Text,
			})
		}
	}

	return issue, nil
}

func mapUser(cfg Config, account string) string {
	if account == "" {
		return cfg.DefaultUser
	}
	if mapped, ok := cfg.UserMap[account]; ok {
		return mapped
	}
	return cfg.DefaultUser
}

// WriteImportFile serializes the document to path. One-shot output, no
// atomic-commit discipline needed here.
func WriteImportFile(path string, doc ImportDocument) error {
	contents, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, contents, 0644)
}
