package ledger

import (
	"time"

	"github.com/google/uuid"
)

type CommunityId string
type MemberId string
type Category string

// One issued strike. Immutable once created: strikes are only ever
// removed, individually by expiry or en masse by a reset.
type StrikeRecord struct {
	Id       uuid.UUID
	IssuedAt time.Time
	Category Category
	Note     string
	IssuedBy MemberId
}

// Strikes for one member within one community, in issuance order.
// Two strikes with identical contents are still distinct records.
type MemberEntry struct {
	Strikes []StrikeRecord
}

type CommunityLedger map[MemberId]MemberEntry

// The unit of persistence: every community the bot knows about.
type Store map[CommunityId]CommunityLedger

// One row of ListActiveMembers.
type MemberCount struct {
	Member MemberId
	Count  int
}
