package hub

import (
	"sync"
	"time"

	"github.com/climbbox/boxhub/box"
)

const snapshotFreshness = 250 * time.Millisecond

// SnapshotCache memoizes a box's snapshot for a short window so a burst of
// REQUEST_STATE calls (reconnect storms, a slow consumer catching up) don't
// each pay for a fresh BuildSnapshot/BuildPublicSnapshot pass. Full and
// Public are cached independently: each tracks its own build time, so
// calling one doesn't extend the other's freshness window.
type SnapshotCache struct {
	mu sync.Mutex

	fullAt time.Time
	full   *box.Snapshot

	publicAt time.Time
	public   *box.PublicSnapshot
}

// Full returns b's current snapshot, reusing one built within the last
// snapshotFreshness if present.
func (c *SnapshotCache) Full(b *box.Box) *box.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full != nil && time.Since(c.fullAt) < snapshotFreshness {
		return c.full
	}
	c.full = b.Snapshot()
	c.fullAt = time.Now()
	return c.full
}

// Public returns b's spectator-redacted snapshot, reusing one built within
// the last snapshotFreshness if present.
func (c *SnapshotCache) Public(b *box.Box) *box.PublicSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.public != nil && time.Since(c.publicAt) < snapshotFreshness {
		return c.public
	}
	c.public = b.PublicSnapshotView()
	c.publicAt = time.Now()
	return c.public
}
