package roster

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func testRoster(t *testing.T, members ...domain.StaffMember) *Roster {
	t.Helper()
	r := New(testLogger())
	require.NoError(t, r.Refresh(context.Background(), &StaticProvider{Members: members}))
	return r
}

func member(id string, capacity int) domain.StaffMember {
	return domain.StaffMember{
		ID:          id,
		Name:        id,
		MaxCapacity: capacity,
		ShiftOnline: true,
	}
}

func TestAssignRespectsCapacity(t *testing.T) {
	r := testRoster(t, member("a", 2))

	require.NoError(t, r.Assign("a"))
	require.NoError(t, r.Assign("a"))
	assert.ErrorIs(t, r.Assign("a"), domain.ErrAtCapacity)

	m, _ := r.Get("a")
	assert.Equal(t, 2, m.CurrentWorkload)
}

func TestAssignUnknownMember(t *testing.T) {
	r := testRoster(t)
	assert.ErrorIs(t, r.Assign("ghost"), domain.ErrStaffNotFound)
}

func TestAssignOfflineMember(t *testing.T) {
	off := member("a", 3)
	off.ShiftOnline = false
	r := testRoster(t, off)
	assert.ErrorIs(t, r.Assign("a"), domain.ErrAtCapacity)
}

func TestReleaseFloorsAtZero(t *testing.T) {
	r := testRoster(t, member("a", 2))

	r.Release("a")
	m, _ := r.Get("a")
	assert.Equal(t, 0, m.CurrentWorkload)

	require.NoError(t, r.Assign("a"))
	r.Release("a")
	r.Release("a")
	m, _ = r.Get("a")
	assert.Equal(t, 0, m.CurrentWorkload)
}

func TestConcurrentAssignNeverOverCapacity(t *testing.T) {
	const capacity = 5
	r := testRoster(t, member("a", capacity))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Assign("a") == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, wins)
	m, _ := r.Get("a")
	assert.Equal(t, capacity, m.CurrentWorkload)
}

func TestRefreshPreservesWorkload(t *testing.T) {
	r := testRoster(t, member("a", 3), member("b", 3))
	require.NoError(t, r.Assign("a"))

	// "a" survives with a bigger capacity, "b" is gone, "c" is new.
	bigger := member("a", 5)
	require.NoError(t, r.Refresh(context.Background(), &StaticProvider{
		Members: []domain.StaffMember{bigger, member("c", 2)},
	}))

	a, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, a.CurrentWorkload, "live workload survives a refresh")
	assert.Equal(t, 5, a.MaxCapacity)

	_, ok = r.Get("b")
	assert.False(t, ok)

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "c", snap[1].ID)
}

func TestSetShift(t *testing.T) {
	r := testRoster(t, member("a", 1))
	require.NoError(t, r.SetShift("a", false))

	m, _ := r.Get("a")
	assert.False(t, m.ShiftOnline)
	assert.ErrorIs(t, r.SetShift("ghost", true), domain.ErrStaffNotFound)
}
