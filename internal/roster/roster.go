// Package roster tracks support staff and their live workload counters.
//
// The roster is the shared mutable state between concurrent sessions racing
// for the same agent, so assignment check-then-act runs entirely under one
// mutex: scoring reads a snapshot, but the commit re-checks capacity before
// incrementing.
package roster

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/logging"
)

// Provider supplies the staff list. Roster provisioning is external; the
// service only reads.
type Provider interface {
	Load(ctx context.Context) ([]domain.StaffMember, error)
}

// StaticProvider serves a fixed member list, typically from config.
type StaticProvider struct {
	Members []domain.StaffMember
}

func (p *StaticProvider) Load(_ context.Context) ([]domain.StaffMember, error) {
	return p.Members, nil
}

// Roster is the in-process staff registry.
type Roster struct {
	mu      sync.RWMutex
	members map[string]*domain.StaffMember
	log     *logging.Logger
}

// New creates an empty roster.
func New(log *logging.Logger) *Roster {
	return &Roster{
		members: make(map[string]*domain.StaffMember),
		log:     log.Sub("roster"),
	}
}

// Refresh replaces the member list from the provider. Workload counters of
// members that survive the refresh are preserved; counters belong to this
// process, not the external roster.
func (r *Roster) Refresh(ctx context.Context, p Provider) error {
	loaded, err := p.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]*domain.StaffMember, len(loaded))
	for _, m := range loaded {
		member := m
		if prev, ok := r.members[m.ID]; ok {
			member.CurrentWorkload = prev.CurrentWorkload
		}
		next[m.ID] = &member
	}
	r.members = next

	r.log.Info().Int("members", len(next)).Msg("roster refreshed")
	return nil
}

// Snapshot returns a copy of all members, sorted by ID for determinism.
func (r *Roster) Snapshot() []domain.StaffMember {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.StaffMember, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a copy of one member.
func (r *Roster) Get(id string) (domain.StaffMember, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	if !ok {
		return domain.StaffMember{}, false
	}
	return *m, true
}

// Assign commits one unit of workload to a member. The capacity check and
// the increment happen under the same lock, so two sessions racing for the
// last slot cannot both win.
func (r *Roster) Assign(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[id]
	if !ok {
		return fmt.Errorf("assign %s: %w", id, domain.ErrStaffNotFound)
	}
	if !m.Available() {
		return fmt.Errorf("assign %s: %w", id, domain.ErrAtCapacity)
	}
	m.CurrentWorkload++
	return nil
}

// Release returns one unit of workload, never dropping below zero.
func (r *Roster) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[id]
	if !ok {
		return
	}
	if m.CurrentWorkload > 0 {
		m.CurrentWorkload--
	}
}

// SetShift flips a member's shift status.
func (r *Roster) SetShift(id string, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[id]
	if !ok {
		return fmt.Errorf("set shift %s: %w", id, domain.ErrStaffNotFound)
	}
	m.ShiftOnline = online
	return nil
}
