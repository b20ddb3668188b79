package tracker

import (
	"context"
	"net/http"
	"testing"

	"github.com/fish-tracker/backend/internal/models"
	"github.com/fish-tracker/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, base string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: base})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		wantErr  bool
		endpoint string
	}{
		{name: "default", base: "", endpoint: "http://localhost:8088/fish"},
		{name: "trailing slash", base: "http://tracker:9000/", endpoint: "http://tracker:9000/fish"},
		{name: "path prefix", base: "https://example.org/api", endpoint: "https://example.org/api/fish"},
		{name: "bad scheme", base: "ftp://tracker", wantErr: true},
		{name: "no host", base: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(Config{BaseURL: tt.base})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.endpoint, c.Endpoint())
		})
	}
}

func TestFetchAll_Success(t *testing.T) {
	fake := testutil.NewFakeTracker()
	defer fake.Close()
	fake.EnqueueList(testutil.ListResponse{
		Body: `[{"id":"1","species":"Salmon","trackingInfo":"TAG-01","weightKG":3.2,"location":{"latitude":44.69,"longitude":-63.64}}]`,
	})

	snap, err := newTestClient(t, fake.URL()).FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, testutil.Salmon(), snap.Entities[0])
	assert.False(t, snap.CapturedAt.IsZero())
}

func TestFetchAll_EmptyBodies(t *testing.T) {
	for _, body := range []string{"", "null", "  \n", "[]"} {
		t.Run("body="+body, func(t *testing.T) {
			fake := testutil.NewFakeTracker()
			defer fake.Close()
			fake.EnqueueList(testutil.ListResponse{Body: body})

			snap, err := newTestClient(t, fake.URL()).FetchAll(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, snap.Entities)
			assert.Empty(t, snap.Entities)
		})
	}
}

func TestFetchAll_Failures(t *testing.T) {
	t.Run("non-2xx is a protocol error", func(t *testing.T) {
		fake := testutil.NewFakeTracker()
		defer fake.Close()
		fake.SetListStatus(http.StatusInternalServerError)

		_, err := newTestClient(t, fake.URL()).FetchAll(context.Background())
		require.Error(t, err)
		assert.True(t, IsProtocol(err))
		assert.False(t, IsNetwork(err))
		assert.Contains(t, Describe(err), "500")
	})

	t.Run("malformed body is a protocol error", func(t *testing.T) {
		fake := testutil.NewFakeTracker()
		defer fake.Close()
		fake.EnqueueList(testutil.ListResponse{Body: `{"not":"a list"}`})

		_, err := newTestClient(t, fake.URL()).FetchAll(context.Background())
		require.Error(t, err)
		var pe *ProtocolError
		require.ErrorAs(t, err, &pe)
		assert.Zero(t, pe.StatusCode)
	})

	t.Run("refused connection is a network error", func(t *testing.T) {
		fake := testutil.NewFakeTracker()
		base := fake.URL()
		fake.Close()

		_, err := newTestClient(t, base).FetchAll(context.Background())
		require.Error(t, err)
		assert.True(t, IsNetwork(err))
		assert.Contains(t, Describe(err), "Could not connect")
	})

	t.Run("dropped connection is a network error", func(t *testing.T) {
		fake := testutil.NewFakeTracker()
		defer fake.Close()
		fake.EnqueueList(testutil.ListResponse{Hijack: true})

		_, err := newTestClient(t, fake.URL()).FetchAll(context.Background())
		require.Error(t, err)
		assert.True(t, IsNetwork(err))
	})
}

func TestFetchAll_SingleAttempt(t *testing.T) {
	fake := testutil.NewFakeTracker()
	defer fake.Close()
	fake.SetListStatus(http.StatusServiceUnavailable)

	_, err := newTestClient(t, fake.URL()).FetchAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, fake.ListCalls())
}

func TestCreate(t *testing.T) {
	t.Run("201 is success", func(t *testing.T) {
		fake := testutil.NewFakeTracker()
		defer fake.Close()

		err := newTestClient(t, fake.URL()).Create(context.Background(), models.NewFish{
			Species: "Trout", TrackingInfo: "TAG-9", WeightKG: PlaceholderWeightKG,
		})
		require.NoError(t, err)
		require.Len(t, fake.Created(), 1)
		assert.Equal(t, "Trout", fake.Created()[0].Species)
		assert.Equal(t, 0.1, fake.Created()[0].WeightKG)
	})

	t.Run("non-2xx is a protocol error", func(t *testing.T) {
		fake := testutil.NewFakeTracker()
		defer fake.Close()
		fake.SetCreateStatus(http.StatusBadRequest)

		err := newTestClient(t, fake.URL()).Create(context.Background(), models.NewFish{Species: "Trout", TrackingInfo: "TAG-9"})
		var pe *ProtocolError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
		assert.Equal(t, 1, fake.CreateCalls())
	})

	t.Run("unreachable is a network error", func(t *testing.T) {
		fake := testutil.NewFakeTracker()
		base := fake.URL()
		fake.Close()

		err := newTestClient(t, base).Create(context.Background(), models.NewFish{Species: "Trout", TrackingInfo: "TAG-9"})
		assert.True(t, IsNetwork(err))
	})
}
