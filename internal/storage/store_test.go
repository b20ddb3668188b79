package storage

import (
	"testing"
	"time"

	"github.com/fish-tracker/backend/internal/models"
	"github.com/fish-tracker/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	v := s.View()

	assert.Empty(t, v.Snapshot.Entities)
	assert.NotNil(t, v.Snapshot.Entities)
	assert.Equal(t, models.Healthy(), v.Status)
}

func TestMemoryStore_ReplaceSnapshot(t *testing.T) {
	s := NewMemoryStore()
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	s.ReplaceSnapshot(models.Snapshot{Entities: testutil.School(3), CapturedAt: at})
	s.ReplaceSnapshot(models.Snapshot{Entities: []models.Fish{testutil.Salmon()}, CapturedAt: at.Add(time.Second)})

	v := s.View()
	require.Len(t, v.Snapshot.Entities, 1)
	assert.Equal(t, "1", v.Snapshot.Entities[0].ID)
	assert.Equal(t, at.Add(time.Second), v.LastSync)
	assert.Equal(t, models.SyncStateHealthy, v.Status.State)
}

func TestMemoryStore_DegradeKeepsSnapshot(t *testing.T) {
	s := NewMemoryStore()
	school := testutil.School(3)
	s.ReplaceSnapshot(models.Snapshot{Entities: school, CapturedAt: time.Now()})
	before := s.View()

	s.Degrade("tracker down")

	after := s.View()
	assert.Equal(t, before.Snapshot, after.Snapshot)
	assert.Equal(t, before.LastSync, after.LastSync)
	assert.True(t, after.Status.IsDegraded())
	assert.Equal(t, "tracker down", after.Status.Reason)
}

func TestMemoryStore_RecoveryClearsDegraded(t *testing.T) {
	s := NewMemoryStore()
	s.Degrade("tracker down")
	s.ReplaceSnapshot(models.Snapshot{CapturedAt: time.Now()})

	v := s.View()
	assert.Equal(t, models.Healthy(), v.Status)
	assert.NotNil(t, v.Snapshot.Entities)
}

func TestMemoryStore_Reset(t *testing.T) {
	s := NewMemoryStore()
	s.ReplaceSnapshot(models.Snapshot{Entities: testutil.School(2), CapturedAt: time.Now()})
	s.Degrade("boom")

	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Reset("session-2", started)

	v := s.View()
	assert.Equal(t, "session-2", v.SessionID)
	assert.Empty(t, v.Snapshot.Entities)
	assert.Equal(t, models.Healthy(), v.Status)
	assert.Equal(t, started, v.LastSync)
}

func TestMemoryStore_ViewIsACopy(t *testing.T) {
	s := NewMemoryStore()
	s.ReplaceSnapshot(models.Snapshot{Entities: testutil.School(2), CapturedAt: time.Now()})

	v := s.View()
	v.Snapshot.Entities[0].Species = "mutated"

	assert.Equal(t, "Cod", s.View().Snapshot.Entities[0].Species)
}

func TestMemoryStore_Subscribe(t *testing.T) {
	s := NewMemoryStore()
	ch, cancel := s.Subscribe()
	defer cancel()

	// Several writes coalesce into one pending signal.
	s.Degrade("a")
	s.Degrade("b")
	s.ReplaceSnapshot(models.Snapshot{CapturedAt: time.Now()})

	select {
	case <-ch:
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-ch:
		t.Fatal("signals should be coalesced")
	default:
	}

	// Repeating the same degraded reason is not a change.
	s.Degrade("c")
	<-ch
	s.Degrade("c")
	select {
	case <-ch:
		t.Fatal("identical status should not signal")
	default:
	}

	cancel()
	s.Degrade("d")
	select {
	case <-ch:
		t.Fatal("cancelled subscription should not signal")
	default:
	}
}

func TestMemoryStore_RevisionIncreases(t *testing.T) {
	s := NewMemoryStore()
	r0 := s.View().Revision
	s.ReplaceSnapshot(models.Snapshot{CapturedAt: time.Now()})
	r1 := s.View().Revision
	s.Degrade("x")
	r2 := s.View().Revision

	assert.Less(t, r0, r1)
	assert.Less(t, r1, r2)
}
