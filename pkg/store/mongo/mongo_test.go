package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/screenflow/screenflow/pkg/store/storetest"
)

// Set SCREENFLOW_TEST_MONGO to a connection URI to run these tests.
func TestConformance(t *testing.T) {
	uri := os.Getenv("SCREENFLOW_TEST_MONGO")
	if uri == "" {
		t.Skip("SCREENFLOW_TEST_MONGO not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := fmt.Sprintf("screenflow_test_%d", time.Now().UnixNano())
	s, err := Open(ctx, uri, dbName)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.client.Database(dbName).Drop(context.Background())
		s.Close()
	})

	storetest.Run(t, s)
}
