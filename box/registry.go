package box

import (
	"sync"

	"github.com/climbbox/boxhub/errors"
)

// Registry owns every live Box, assigning stable small-integer ids on
// creation and dropping a box on deletion. It knows nothing of hub
// subscribers; closing them is left to the caller of Delete.
type Registry struct {
	mu    sync.RWMutex
	boxes map[int]*Box
	nextID int
	clock Clock
}

// NewRegistry returns an empty Registry using clock for every box it creates.
func NewRegistry(clock Clock) *Registry {
	return &Registry{
		boxes: make(map[int]*Box),
		clock: clock,
	}
}

// NewBoxSpec describes the roster-upload inputs that create a Box.
type NewBoxSpec struct {
	Categorie      string
	RoutesCount    int
	HoldsCounts    []int
	Competitors    []CompetitorInput
	TimerPresetSec int
}

// Create allocates a new Box with the next boxId, in the un-initiated
// state described in §3's lifecycle note ("created when a roster is
// uploaded... enters initiated=true on the first INIT_ROUTE").
func (r *Registry) Create(spec NewBoxSpec) (*Box, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	b := &Box{
		BoxID:             id,
		Categorie:         spec.Categorie,
		RoutesCount:       spec.RoutesCount,
		HoldsCounts:       append([]int(nil), spec.HoldsCounts...),
		TimerPresetSec:    spec.TimerPresetSec,
		TimerState:        TimerIdle,
		TimerRemainingSec: spec.TimerPresetSec,
		clock:             r.clock,
	}
	for _, c := range spec.Competitors {
		b.Competitors = append(b.Competitors, Competitor{Name: c.Name, Club: c.Club})
	}
	sid, err := newSessionID()
	if err != nil {
		return nil, errors.Wrap(err, "failed to assign initial session")
	}
	b.SessionID = sid
	b.BoxVersion = 0

	r.boxes[id] = b
	return b, nil
}

// Get returns the box with the given id, or ok=false.
func (r *Registry) Get(id int) (*Box, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.boxes[id]
	return b, ok
}

// Delete removes a box from the registry. Callers are responsible for
// closing its hub subscribers first (§3's destruction lifecycle note).
func (r *Registry) Delete(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boxes, id)
}

// List returns every live box, in unspecified order.
func (r *Registry) List() []*Box {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Box, 0, len(r.boxes))
	for _, b := range r.boxes {
		out = append(out, b)
	}
	return out
}

// ListInitiated returns only boxes that have run their first INIT_ROUTE,
// the set the public channel and rankings page are allowed to see (§4.F).
func (r *Registry) ListInitiated() []*Box {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Box, 0, len(r.boxes))
	for _, b := range r.boxes {
		b.mu.Lock()
		initiated := b.Initiated
		b.mu.Unlock()
		if initiated {
			out = append(out, b)
		}
	}
	return out
}
