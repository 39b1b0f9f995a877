package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Ledger owns the durable record of strikes per community and member.
// Every operation observes the rolling expiry window: expired strikes
// are never reported as active, whether or not they have been
// physically removed from the store yet.
//
// Mutations take the process mutex and the store file lock around
// their load-modify-save sequence. Reads take neither: the store file
// is replaced atomically, so a plain load is always a consistent
// snapshot, and expired records are filtered in memory.
type Ledger struct {
	mu         sync.Mutex
	database   Database
	expiry     time.Duration
	threshold  int
	categories map[Category]struct{}
	clock      Clock
}

func NewLedger(database Database, expiry time.Duration, threshold int, categories []Category, clock Clock) *Ledger {
	set := map[Category]struct{}{}
	for _, category := range categories {
		set[category] = struct{}{}
	}
	return &Ledger{
		database:   database,
		expiry:     expiry,
		threshold:  threshold,
		categories: set,
		clock:      clock,
	}
}

func (ledger *Ledger) ValidCategory(category Category) bool {
	_, ok := ledger.categories[category]
	return ok
}

// AddStrike appends a new strike for the member and returns the
// member's active count including it, plus whether that count equals
// exactly the review threshold. Equality, not at-or-above: the signal
// fires once per crossing and never again at higher counts
func (ledger *Ledger) AddStrike(community CommunityId, member MemberId, category Category, note string, issuedBy MemberId) (int, bool, error) {

	if !ledger.ValidCategory(category) {
		return 0, false, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if err := ledger.database.Lock(); err != nil {
		return 0, false, err
	}
	defer ledger.database.Unlock()

	store, err := ledger.database.Load()
	if err != nil {
		// Refuse to write over content we could not parse
		log.Error().Err(err).Str("community", string(community)).Str("member", string(member)).Msg("Could not load store for add")
		return 0, false, err
	}

	now := ledger.clock()
	if _, ok := store[community]; !ok {
		store[community] = CommunityLedger{}
	}
	entry := store[community][member]
	entry.Strikes = append(entry.Strikes, StrikeRecord{
		Id:       uuid.New(),
		IssuedAt: now,
		Category: category,
		Note:     note,
		IssuedBy: issuedBy,
	})
	store[community][member] = entry

	// Prune before counting so the returned count holds only active
	// strikes, the new one included
	pruneCommunity(store, community, now, ledger.expiry)
	if err := ledger.database.Save(store); err != nil {
		log.Error().Err(err).Str("community", string(community)).Str("member", string(member)).Msg("Could not persist new strike")
		return 0, false, err
	}

	count := len(store[community][member].Strikes)
	crossed := count == ledger.threshold
	log.Info().Str("community", string(community)).Str("member", string(member)).Str("category", string(category)).Int("active", count).Bool("crossed", crossed).Msg("Strike added")
	return count, crossed, nil
}

// GetActiveStrikes returns the member's active strikes, most recent
// first. An unknown member, an empty store or a failed load all read
// as no strikes; this never errors
func (ledger *Ledger) GetActiveStrikes(community CommunityId, member MemberId) []StrikeRecord {

	store := ledger.loadForRead("GetActiveStrikes", community, member)
	entry, ok := store[community][member]
	if !ok {
		return []StrikeRecord{}
	}

	now := ledger.clock()
	active := make([]StrikeRecord, 0, len(entry.Strikes))
	for _, record := range entry.Strikes {
		if activeAt(record, now, ledger.expiry) {
			active = append(active, record)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].IssuedAt.After(active[j].IssuedAt)
	})
	return active
}

// ListActiveMembers returns every member of the community with at
// least one active strike, sorted by active count descending and by
// member id ascending between equal counts
func (ledger *Ledger) ListActiveMembers(community CommunityId) []MemberCount {

	store := ledger.loadForRead("ListActiveMembers", community, "")
	now := ledger.clock()

	counts := []MemberCount{}
	for member, entry := range store[community] {
		count := 0
		for _, record := range entry.Strikes {
			if activeAt(record, now, ledger.expiry) {
				count++
			}
		}
		if count > 0 {
			counts = append(counts, MemberCount{Member: member, Count: count})
		}
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Member < counts[j].Member
	})
	return counts
}

// ResetMember removes all strikes for the member, expired ones
// included, and returns how many were still active. Resetting a
// member with nothing recorded returns 0 and is not an error
func (ledger *Ledger) ResetMember(community CommunityId, member MemberId) (int, error) {

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if err := ledger.database.Lock(); err != nil {
		return 0, err
	}
	defer ledger.database.Unlock()

	store, err := ledger.database.Load()
	if err != nil {
		log.Error().Err(err).Str("community", string(community)).Str("member", string(member)).Msg("Could not load store for reset")
		return 0, err
	}

	entry, ok := store[community][member]
	if !ok {
		return 0, nil
	}

	now := ledger.clock()
	previous := 0
	for _, record := range entry.Strikes {
		if activeAt(record, now, ledger.expiry) {
			previous++
		}
	}

	delete(store[community], member)
	if len(store[community]) == 0 {
		delete(store, community)
	}
	if err := ledger.database.Save(store); err != nil {
		log.Error().Err(err).Str("community", string(community)).Str("member", string(member)).Msg("Could not persist member reset")
		return 0, err
	}
	log.Info().Str("community", string(community)).Str("member", string(member)).Int("previous", previous).Msg("Member reset")
	return previous, nil
}

// ResetCommunity removes every member of the community in one step
// and returns how many of them still had active strikes
func (ledger *Ledger) ResetCommunity(community CommunityId) (int, error) {

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if err := ledger.database.Lock(); err != nil {
		return 0, err
	}
	defer ledger.database.Unlock()

	store, err := ledger.database.Load()
	if err != nil {
		log.Error().Err(err).Str("community", string(community)).Msg("Could not load store for community reset")
		return 0, err
	}

	members, ok := store[community]
	if !ok {
		return 0, nil
	}

	now := ledger.clock()
	previous := 0
	for _, entry := range members {
		for _, record := range entry.Strikes {
			if activeAt(record, now, ledger.expiry) {
				previous++
				break
			}
		}
	}

	delete(store, community)
	if err := ledger.database.Save(store); err != nil {
		log.Error().Err(err).Str("community", string(community)).Msg("Could not persist community reset")
		return 0, err
	}
	log.Info().Str("community", string(community)).Int("previous", previous).Msg("Community reset")
	return previous, nil
}

// Prune physically removes expired strikes and empty members from the
// community and reports whether the persisted state changed
func (ledger *Ledger) Prune(community CommunityId) (bool, error) {

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if err := ledger.database.Lock(); err != nil {
		return false, err
	}
	defer ledger.database.Unlock()

	store, err := ledger.database.Load()
	if err != nil {
		log.Error().Err(err).Str("community", string(community)).Msg("Could not load store for prune")
		return false, err
	}

	if !pruneCommunity(store, community, ledger.clock(), ledger.expiry) {
		return false, nil
	}
	if err := ledger.database.Save(store); err != nil {
		log.Error().Err(err).Str("community", string(community)).Msg("Could not persist prune")
		return false, err
	}
	return true, nil
}

// PruneAll sweeps every community in the store. Used by the periodic
// housekeeping cycle so the file stays tidy between commands
func (ledger *Ledger) PruneAll() (bool, error) {

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	if err := ledger.database.Lock(); err != nil {
		return false, err
	}
	defer ledger.database.Unlock()

	store, err := ledger.database.Load()
	if err != nil {
		log.Error().Err(err).Msg("Could not load store for full prune")
		return false, err
	}

	now := ledger.clock()
	changed := false
	for community := range store {
		if pruneCommunity(store, community, now, ledger.expiry) {
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	if err := ledger.database.Save(store); err != nil {
		log.Error().Err(err).Msg("Could not persist full prune")
		return false, err
	}
	log.Debug().Msg("Full prune removed expired strikes")
	return true, nil
}

// Load a snapshot for a read-only operation. Failures degrade to an
// empty store after logging, so readers stay available even when the
// file is unreadable
func (ledger *Ledger) loadForRead(operation string, community CommunityId, member MemberId) Store {
	store, err := ledger.database.Load()
	if err != nil {
		log.Warn().Err(err).Str("operation", operation).Str("community", string(community)).Str("member", string(member)).Msg("Could not load store, reading as empty")
		return Store{}
	}
	return store
}

// A strike is active while its age is at most the expiry window.
// Inclusive comparison: a strike expires the instant it crosses the
// boundary. The zero IssuedAt of a record whose stored timestamp did
// not parse is always outside the window
func activeAt(record StrikeRecord, now time.Time, expiry time.Duration) bool {
	return now.Sub(record.IssuedAt) <= expiry
}

// Remove expired strikes, then members without strikes, then the
// community itself if nothing is left. Reports whether anything was
// removed
func pruneCommunity(store Store, community CommunityId, now time.Time, expiry time.Duration) bool {

	members, ok := store[community]
	if !ok {
		return false
	}

	changed := false
	for member, entry := range members {
		kept := make([]StrikeRecord, 0, len(entry.Strikes))
		for _, record := range entry.Strikes {
			if activeAt(record, now, expiry) {
				kept = append(kept, record)
			}
		}
		if len(kept) != len(entry.Strikes) {
			changed = true
		}
		if len(kept) == 0 {
			// An entry without active strikes has no reason to exist
			delete(members, member)
			changed = true
			continue
		}
		members[member] = MemberEntry{Strikes: kept}
	}
	if len(members) == 0 {
		delete(store, community)
		changed = true
	}
	return changed
}
