package core

import (
	"net/netip"
	"time"

	"github.com/encodeous/lrr/state"
	"github.com/jellydator/ttlcache/v3"
)

type seqRecord struct {
	seq     uint32
	expires time.Duration
}

// SeqCache remembers the latest sequence number seen from every origin.
// Expiry follows the scheduler clock, not wall time, so records never expire inside ttlcache itself.
type SeqCache struct {
	clock    state.Scheduler
	lifetime time.Duration
	records  *ttlcache.Cache[netip.Addr, seqRecord]
}

func NewSeqCache(clock state.Scheduler, lifetime time.Duration) *SeqCache {
	return &SeqCache{
		clock:    clock,
		lifetime: lifetime,
		records: ttlcache.New[netip.Addr, seqRecord](
			ttlcache.WithTTL[netip.Addr, seqRecord](ttlcache.NoTTL),
			ttlcache.WithDisableTouchOnHit[netip.Addr, seqRecord](),
		),
	}
}

// IsDuplicate reports whether seq is the number last seen from origin and that record is still live.
// The record is refreshed with seq either way. An older number arriving after a newer one is not detected.
func (c *SeqCache) IsDuplicate(origin netip.Addr, seq uint32) bool {
	now := c.clock.Now()
	item := c.records.Get(origin)
	c.records.Set(origin, seqRecord{seq: seq, expires: now + c.lifetime}, ttlcache.DefaultTTL)
	if item == nil {
		return false
	}
	prev := item.Value()
	return prev.expires >= now && prev.seq == seq
}

// Purge drops every expired record
func (c *SeqCache) Purge() {
	now := c.clock.Now()
	expired := make([]netip.Addr, 0)
	c.records.Range(func(item *ttlcache.Item[netip.Addr, seqRecord]) bool {
		if item.Value().expires < now {
			expired = append(expired, item.Key())
		}
		return true
	})
	for _, origin := range expired {
		c.records.Delete(origin)
	}
}

func (c *SeqCache) Len() int {
	return c.records.Len()
}

func (c *SeqCache) Lifetime() time.Duration {
	return c.lifetime
}

// DuplicateDetection tags outgoing multicast packets and filters repeated ones on the way in.
type DuplicateDetection struct {
	cache   *SeqCache
	lastSeq uint32
}

func NewDuplicateDetection(clock state.Scheduler, lifetime time.Duration) *DuplicateDetection {
	return &DuplicateDetection{
		cache: NewSeqCache(clock, lifetime),
	}
}

// PrepareTx gives the packet a sequence number unless it already carries one
func (d *DuplicateDetection) PrepareTx(pkt *state.Packet) {
	if pkt.Tagged {
		return
	}
	d.lastSeq++
	pkt.Seq = d.lastSeq
	pkt.Tagged = true
}

// IsDuplicate treats untagged packets as duplicates, they cannot be told apart.
func (d *DuplicateDetection) IsDuplicate(pkt *state.Packet) bool {
	if !pkt.Tagged {
		return true
	}
	return d.cache.IsDuplicate(pkt.Src, pkt.Seq)
}

func (d *DuplicateDetection) Purge() {
	d.cache.Purge()
}
