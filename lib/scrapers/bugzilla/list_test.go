package bugzilla

import (
	"bugvault/lib/telemetry"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifySession(t *testing.T) {
	defer telemetry.SetupForTesting(t, "scrapers/bugzilla")()

	fake := &fakeBugzilla{bugs: makeBugs(1), pageCap: 100}
	server := fake.start(t)

	client := newTestClient(t, server.URL)
	require.NoError(t, client.VerifySession(context.Background()))

	anonymous, err := NewClient(ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	require.ErrorIs(t, anonymous.VerifySession(context.Background()), ErrNotLoggedIn)
}

func TestListTerminatesOnlyOnEmptyPage(t *testing.T) {
	defer telemetry.SetupForTesting(t, "scrapers/bugzilla")()

	// 250 bugs behind a silent server-side cap of 100: a full *and* a
	// partial page both mean "keep going"
	fake := &fakeBugzilla{bugs: makeBugs(250), pageCap: 100}
	server := fake.start(t)
	client := newTestClient(t, server.URL)

	ids, err := client.ListBugIDs(context.Background(), Scope{Product: "tools"})
	require.NoError(t, err)

	require.Len(t, ids, 250)
	for i, id := range ids {
		require.Equal(t, i+1, id)
	}
	// pages at offsets 0, 100, 200 and the empty one at 250
	require.Equal(t, 4, fake.listRequests)
}

func TestListEmptyScope(t *testing.T) {
	defer telemetry.SetupForTesting(t, "scrapers/bugzilla")()

	fake := &fakeBugzilla{pageCap: 100}
	server := fake.start(t)
	client := newTestClient(t, server.URL)

	ids, err := client.ListBugIDs(context.Background(), Scope{Product: "tools"})
	require.NoError(t, err)
	require.Empty(t, ids)
	require.Equal(t, 1, fake.listRequests)
}

func TestParseBuglistCsvRejectsMissingColumn(t *testing.T) {
	_, err := parseBuglistCsv([]byte("id,summary\n1,foo\n"))
	require.Error(t, err)
}
