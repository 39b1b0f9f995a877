package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// How long a mutation will wait for the store lock before giving up
const lockTimeout = 5 * time.Second

// Wire format of the store file. Timestamps are kept as strings so a
// record with a malformed timestamp can be carried (and later pruned)
// without making the whole file unreadable.
type strikeDoc struct {
	Id        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp"`
	Category  string `json:"category"`
	Note      string `json:"note,omitempty"`
	IssuedBy  string `json:"issuedBy"`
}

type memberDoc struct {
	Strikes []strikeDoc `json:"strikes"`
}

type storeDoc map[string]map[string]memberDoc

// Database persists the strike store as a single JSON document.
// Writes go to a temp file first and are renamed into place, so a
// reader never observes a half-written file. Mutating callers hold
// the adjacent lock file around their load-modify-save sequence.
type Database struct {
	filename string
	lock     *flock.Flock
}

func NewDatabase(filename string) Database {
	return Database{filename: filename, lock: flock.New(filename + ".lock")}
}

// Acquire the exclusive store lock, waiting up to lockTimeout.
// The caller must call Unlock when its read-modify-write is done
func (db *Database) Lock() error {
	if err := os.MkdirAll(filepath.Dir(db.lock.Path()), 0755); err != nil {
		return fmt.Errorf("%w: creating lock directory: %v", ErrStorageUnavailable, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := db.lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("%w: acquiring lock: %v", ErrStorageUnavailable, err)
	}
	if !locked {
		return fmt.Errorf("%w: timeout waiting for store lock", ErrStorageUnavailable)
	}
	return nil
}

func (db *Database) Unlock() {
	if err := db.lock.Unlock(); err != nil {
		log.Error().Err(err).Str("file", db.filename).Msg("Could not release store lock")
	}
}

// Load reads the whole store. A missing or empty file is an empty
// store, not an error. Unparseable content is ErrCorruptStore
func (db *Database) Load() (Store, error) {
	raw, err := os.ReadFile(db.filename)
	if os.IsNotExist(err) {
		return Store{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStorageUnavailable, db.filename, err)
	}
	if len(raw) == 0 {
		return Store{}, nil
	}

	var doc storeDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrCorruptStore, db.filename, err)
	}
	return decodeStore(doc), nil
}

// Save writes the whole store atomically (temp file, then rename)
func (db *Database) Save(store Store) error {
	data, err := json.MarshalIndent(encodeStore(store), "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding store: %v", ErrStorageUnavailable, err)
	}
	tmp := db.filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorageUnavailable, tmp, err)
	}
	if err := os.Rename(tmp, db.filename); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replacing %s: %v", ErrStorageUnavailable, db.filename, err)
	}
	return nil
}

func decodeStore(doc storeDoc) Store {
	store := Store{}
	for communityid, members := range doc {
		community := CommunityLedger{}
		for memberid, entry := range members {
			strikes := make([]StrikeRecord, 0, len(entry.Strikes))
			for _, s := range entry.Strikes {
				strikes = append(strikes, decodeStrike(s))
			}
			community[MemberId(memberid)] = MemberEntry{Strikes: strikes}
		}
		store[CommunityId(communityid)] = community
	}
	return store
}

func decodeStrike(doc strikeDoc) StrikeRecord {
	record := StrikeRecord{
		Category: Category(doc.Category),
		Note:     doc.Note,
		IssuedBy: MemberId(doc.IssuedBy),
	}
	// A record written before ids existed keeps a nil id
	if id, err := uuid.Parse(doc.Id); err == nil {
		record.Id = id
	}
	// A malformed timestamp leaves IssuedAt at the zero time, which
	// can never fall inside the expiry window, so the record reads as
	// expired and the next physical prune drops it
	if t, err := time.Parse(time.RFC3339Nano, doc.Timestamp); err == nil {
		record.IssuedAt = t
	} else {
		log.Warn().Str("timestamp", doc.Timestamp).Str("category", doc.Category).Msg("Strike record has a malformed timestamp, treating as expired")
	}
	return record
}

func encodeStore(store Store) storeDoc {
	doc := storeDoc{}
	for communityid, community := range store {
		members := map[string]memberDoc{}
		for memberid, entry := range community {
			strikes := make([]strikeDoc, 0, len(entry.Strikes))
			for _, record := range entry.Strikes {
				strikes = append(strikes, encodeStrike(record))
			}
			members[string(memberid)] = memberDoc{Strikes: strikes}
		}
		doc[string(communityid)] = members
	}
	return doc
}

func encodeStrike(record StrikeRecord) strikeDoc {
	doc := strikeDoc{
		Timestamp: record.IssuedAt.Format(time.RFC3339Nano),
		Category:  string(record.Category),
		Note:      record.Note,
		IssuedBy:  string(record.IssuedBy),
	}
	if record.Id != uuid.Nil {
		doc.Id = record.Id.String()
	}
	return doc
}
