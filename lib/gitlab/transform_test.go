package gitlab

import (
	"bugvault/lib/testutil"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const splitBatch = `<?xml version="1.0" encoding="UTF-8"?>
<bugzilla version="5.0">
<bug>
<bug_id>101</bug_id>
<short_desc>crash when saving</short_desc>
<bug_status>RESOLVED</bug_status>
<resolution>FIXED</resolution>
<product>tools</product>
<component>editor</component>
<reporter>alice@example.org</reporter>
<assigned_to>bob@example.org</assigned_to>
<creation_ts>2024-01-02 03:04:05 +0000</creation_ts>
<long_desc><who>alice@example.org</who><bug_when>2024-01-02 03:04:05 +0000</bug_when><thetext>it crashes</thetext></long_desc>
<long_desc><who>carol@example.org</who><bug_when>2024-01-03 00:00:00 +0000</bug_when><thetext>me too</thetext></long_desc>
<attachment><attachid>7</attachid><filename>trace.log</filename><data encoding="base64"/></attachment>
</bug>
</bugzilla>
`

func TestTransform(t *testing.T) {
	arc, cleanup := testutil.SetupArchive(t, "gitlab")
	defer cleanup()

	_, _, err := arc.CommitBatch(1, strings.NewReader(splitBatch))
	require.NoError(t, err)

	cfg, err := MergeConfig(Config{
		Project: "group/tools",
		UserMap: map[string]string{
			"alice@example.org": "alice",
		},
		DefaultUser: "importer",
	})
	require.NoError(t, err)

	doc, err := Transform(context.Background(), arc, cfg)
	require.NoError(t, err)
	require.Equal(t, "group/tools", doc.Project)

	want := []Issue{{
		Iid:   101,
		Title: "crash when saving",
		State: "closed",
		Labels: []string{
			"resolution::fixed",
			"component::editor",
		},
		Author:      "alice",
		Assignee:    "importer",
		CreatedAt:   "2024-01-02 03:04:05 +0000",
		Description: "it crashes\n\n**Attachment:** [trace.log](attachments/attachment.7.dat)",
		Notes: []Note{{
			Author:    "importer",
			CreatedAt: "2024-01-03 00:00:00 +0000",
			Body:      "me too",
		}},
	}}
	if diff := cmp.Diff(want, doc.Issues); diff != "" {
		t.Fatal(diff)
	}
}

func TestTransformRejectsInlineData(t *testing.T) {
	arc, cleanup := testutil.SetupArchive(t, "gitlab")
	defer cleanup()

	batch := strings.Replace(
		splitBatch,
		`<data encoding="base64"/>`,
		`<data encoding="base64">aGVsbG8=</data>`,
		1,
	)
	_, _, err := arc.CommitBatch(1, strings.NewReader(batch))
	require.NoError(t, err)

	cfg, err := MergeConfig(Config{})
	require.NoError(t, err)

	_, err = Transform(context.Background(), arc, cfg)
	require.ErrorContains(t, err, "inline data")
}

func TestTransformRejectsUnmappedStatus(t *testing.T) {
	arc, cleanup := testutil.SetupArchive(t, "gitlab")
	defer cleanup()

	batch := strings.Replace(splitBatch, "RESOLVED", "NEEDINFO", 1)
	_, _, err := arc.CommitBatch(1, strings.NewReader(batch))
	require.NoError(t, err)

	cfg, err := MergeConfig(Config{})
	require.NoError(t, err)

	_, err = Transform(context.Background(), arc, cfg)
	require.ErrorContains(t, err, "NEEDINFO")
}

func TestMergeConfigOverridesPolicy(t *testing.T) {
	// splitting WONTFIX out of the collapsed "closed" bucket is a config
	// decision, not a code change
	cfg, err := MergeConfig(Config{
		StatusMap: map[string]string{"RESOLVED": "opened"},
	})
	require.NoError(t, err)

	require.Equal(t, "opened", cfg.StatusMap["RESOLVED"])
	require.Equal(t, "closed", cfg.StatusMap["CLOSED"])
	require.Equal(t, "resolution::wontfix", cfg.ResolutionLabels["WONTFIX"])
	require.Equal(t, "bugzilla-import", cfg.DefaultUser)
}
