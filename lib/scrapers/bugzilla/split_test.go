package bugzilla

import (
	"bugvault/lib/testutil"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitRoundTrip(t *testing.T) {
	arc, cleanup := testutil.SetupArchive(t, "scrapers/bugzilla")
	defer cleanup()

	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00}
	fake := &fakeBugzilla{
		bugs: []fakeBug{{
			id:      1,
			summary: "crash on startup",
			status:  "CONFIRMED",
			attachments: []fakeAttachment{
				{id: 10, filename: "screenshot.png", data: payload, inline: true},
			},
		}},
		pageCap: 100,
	}
	server := fake.start(t)
	client := newTestClient(t, server.URL)

	batches, err := client.FetchBugs(context.Background(), arc, []int{1}, nil)
	require.NoError(t, err)
	require.Len(t, batches, 1)

	extracted, err := SplitAttachments(context.Background(), arc, batches)
	require.NoError(t, err)
	require.Equal(t, map[int]struct{}{10: {}}, extracted)

	// the decoded bytes landed under the canonical attachment name
	got, err := os.ReadFile(arc.AttachmentPath(10))
	require.NoError(t, err)
	require.Equal(t, payload, got)

	// the rewritten batch keeps the reference but no inline data
	bugs, err := ParseBatchFile(batches[0].Path)
	require.NoError(t, err)
	require.Len(t, bugs, 1)
	require.Len(t, bugs[0].Attachments, 1)
	require.Equal(t, 10, bugs[0].Attachments[0].Id)
	require.Equal(t, "screenshot.png", bugs[0].Attachments[0].Filename)
	require.False(t, bugs[0].Attachments[0].Inline)

	contents, err := os.ReadFile(batches[0].Path)
	require.NoError(t, err)
	require.NotContains(t, string(contents), "iVBOR")
	require.Contains(t, string(contents), `encoding="base64"`)
}

func TestSplitSkipsAlreadyExtractedAttachment(t *testing.T) {
	arc, cleanup := testutil.SetupArchive(t, "scrapers/bugzilla")
	defer cleanup()

	fake := &fakeBugzilla{
		bugs: []fakeBug{{
			id:     1,
			status: "CONFIRMED",
			attachments: []fakeAttachment{
				{id: 10, filename: "a.txt", data: []byte("remote copy"), inline: true},
			},
		}},
		pageCap: 100,
	}
	server := fake.start(t)
	client := newTestClient(t, server.URL)

	// a previous run crashed between extracting the attachment and
	// rewriting the batch
	_, _, err := arc.CommitAttachment(10, strings.NewReader("previously extracted"))
	require.NoError(t, err)

	batches, err := client.FetchBugs(context.Background(), arc, []int{1}, nil)
	require.NoError(t, err)
	extracted, err := SplitAttachments(context.Background(), arc, batches)
	require.NoError(t, err)
	require.Equal(t, map[int]struct{}{10: {}}, extracted)

	// the existing file was not overwritten
	got, err := os.ReadFile(arc.AttachmentPath(10))
	require.NoError(t, err)
	require.Equal(t, "previously extracted", string(got))
}

func TestSplitIsIdempotent(t *testing.T) {
	arc, cleanup := testutil.SetupArchive(t, "scrapers/bugzilla")
	defer cleanup()

	fake := &fakeBugzilla{
		bugs: []fakeBug{{
			id:     1,
			status: "CONFIRMED",
			attachments: []fakeAttachment{
				{id: 10, filename: "a.txt", data: []byte("contents"), inline: true},
			},
		}},
		pageCap: 100,
	}
	server := fake.start(t)
	client := newTestClient(t, server.URL)

	batches, err := client.FetchBugs(context.Background(), arc, []int{1}, nil)
	require.NoError(t, err)
	_, err = SplitAttachments(context.Background(), arc, batches)
	require.NoError(t, err)

	first, err := os.ReadFile(batches[0].Path)
	require.NoError(t, err)

	// a second pass finds nothing inline and must not rewrite anything
	extracted, err := SplitAttachments(context.Background(), arc, batches)
	require.NoError(t, err)
	require.Empty(t, extracted)

	second, err := os.ReadFile(batches[0].Path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSplitRejectsUnknownEncoding(t *testing.T) {
	arc, cleanup := testutil.SetupArchive(t, "scrapers/bugzilla")
	defer cleanup()

	fake := &fakeBugzilla{
		bugs: []fakeBug{{
			id:     1,
			status: "CONFIRMED",
			attachments: []fakeAttachment{
				{id: 10, filename: "a.txt", data: []byte("contents"), inline: true, encoding: "uuencode"},
			},
		}},
		pageCap: 100,
	}
	server := fake.start(t)
	client := newTestClient(t, server.URL)

	batches, err := client.FetchBugs(context.Background(), arc, []int{1}, nil)
	require.NoError(t, err)

	_, err = SplitAttachments(context.Background(), arc, batches)
	require.ErrorContains(t, err, "uuencode")
}
