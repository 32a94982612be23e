package store

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"partwatch/internal/components/chrono"
	"partwatch/internal/components/telemetry"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tclog "github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startLibsql runs a libsql server and returns its http endpoint.
func startLibsql(t *testing.T) string {
	if testing.Short() {
		t.Skip("skipping libsql container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	// suppress logging
	tclog.SetDefault(log.New(io.Discard, "", 0))

	ctx := context.Background()
	sqld, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "ghcr.io/tursodatabase/libsql-server:latest",
				ExposedPorts: []string{"8080/tcp"},
				WaitingFor:   wait.ForHTTP("/health").WithPort("8080/tcp"),
			},
		},
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		err := sqld.Terminate(context.Background())
		if err != nil {
			t.Log(err)
		}
	})

	endpoint, err := sqld.PortEndpoint(ctx, "8080/tcp", "http")
	require.NoError(t, err)
	return endpoint
}

func TestRemoteStore(t *testing.T) {
	ctx := context.Background()
	// the server runs without jwt auth, any token is accepted
	config := Config{Url: startLibsql(t), AuthToken: "partwatch-test"}

	store, err := Open(config, &telemetry.RecordingAPI{})
	require.NoError(t, err)

	first := time.Date(2024, 5, 1, 9, 0, 0, 0, chrono.KST())
	second := first.Add(24 * time.Hour)
	require.NoError(t, store.Append(ctx, snapshotAt(first, "run-1", "a", "b")))
	require.NoError(t, store.Append(ctx, snapshotAt(second, "run-2", "b")))
	require.ErrorIs(t, store.Append(ctx, snapshotAt(second, "run-3", "c")), ErrSnapshotExists)
	require.NoError(t, store.Close())

	// migrations are idempotent against the remote database too
	store, err = Open(config, &telemetry.RecordingAPI{})
	require.NoError(t, err)
	defer store.Close()

	keys, err := store.SnapshotKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	require.True(t, keys[0].Equal(second))

	key, runId, ok, err := store.LatestKey(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, key.Equal(second))
	require.Equal(t, "run-2", runId)

	products, err := store.Products(ctx, first)
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "a", products[0].Name)

	header, err := store.Header(ctx)
	require.NoError(t, err)
	require.Equal(t, HEADER, header)
}
