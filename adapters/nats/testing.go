package nats

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// TestURLEnv names a running JetStream server to test against instead
	// of starting a container.
	TestURLEnv = "ACTR_TEST_NATS_URL"
	// TestImageEnv overrides the container image.
	TestImageEnv = "ACTR_TEST_NATS_IMAGE"

	defaultTestImage = "nats:2.10-alpine"
)

// NewTestContainer returns a Connector for a JetStream enabled NATS server
// that lives as long as the test. The server named by ACTR_TEST_NATS_URL is
// used when set; otherwise a container is started, and the test is skipped
// when no container runtime is reachable.
func NewTestContainer(t *testing.T) Connector {
	t.Helper()

	if url, ok := os.LookupEnv(TestURLEnv); ok && url != "" {
		t.Logf("nats endpoint from %s: %s", TestURLEnv, url)
		return ConnectURL(url)
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	image := defaultTestImage
	if v, ok := os.LookupEnv(TestImageEnv); ok && v != "" {
		image = v
	}

	ctx := t.Context()
	ctr, err := testcontainers.Run(
		ctx, image,
		testcontainers.WithCmd("-js"),
		testcontainers.WithExposedPorts("4222/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("4222/tcp"),
			wait.ForLog("Server is ready"),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start %s", image)

	endpoint, err := ctr.PortEndpoint(ctx, "4222/tcp", "nats")
	require.NoError(t, err)
	t.Logf("nats endpoint: %s (%s)", endpoint, image)
	return ConnectURL(endpoint)
}
