package bot

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"strikebot/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFormatter() Formatter {
	return Formatter{
		ExpiryDays: 30,
		Labels:     map[string]string{"tb": "Territory Battle", "tw": "Territory War", "raid": "Raid"},
	}
}

func testStrikes(n int) []ledger.StrikeRecord {
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	records := make([]ledger.StrikeRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, ledger.StrikeRecord{
			IssuedAt: issued.Add(-time.Duration(i) * time.Hour),
			Category: "tb",
			IssuedBy: "officer",
		})
	}
	return records
}

func TestLabelFallsBackToTag(t *testing.T) {
	formatter := testFormatter()
	assert.Equal(t, "Territory War", formatter.Label("tw"))
	assert.Equal(t, "mystery", formatter.Label("mystery"))
}

func TestOwnStrikesEmpty(t *testing.T) {
	formatter := testFormatter()
	assert.Equal(t, "You have **0** active strikes (rolling **30 days**).", formatter.OwnStrikes(nil))
}

func TestMemberStrikesCapped(t *testing.T) {

	formatter := testFormatter()
	out := formatter.MemberStrikes("123", testStrikes(20))

	assert.Contains(t, out, "<@123>")
	assert.Contains(t, out, "**20**")
	assert.Contains(t, out, "(Showing most recent 15 of 20.)")
	assert.Equal(t, maxStrikesShown, strings.Count(out, "•"))
}

func TestStrikeAddedIncludesNote(t *testing.T) {

	formatter := testFormatter()

	out := formatter.StrikeAdded("123", "raid", "zero", 2)
	assert.Contains(t, out, "**Raid**")
	assert.Contains(t, out, "Note: zero")

	out = formatter.StrikeAdded("123", "raid", "", 2)
	assert.NotContains(t, out, "Note:")
}

func TestActiveListChunking(t *testing.T) {

	formatter := testFormatter()
	counts := make([]ledger.MemberCount, 0, 200)
	for i := 0; i < 200; i++ {
		counts = append(counts, ledger.MemberCount{Member: ledger.MemberId(fmt.Sprintf("%018d", i)), Count: 3})
	}

	responses := formatter.ActiveList(counts, "officer")
	require.Greater(t, len(responses), 2, "long listings split into several messages")

	total := 0
	for _, response := range responses {
		message := response.(ResponseString).string
		assert.LessOrEqual(t, len(message), maxMessageLen)
		total += strings.Count(message, "•")
	}
	assert.Equal(t, len(counts), total, "every member appears exactly once")
}

func TestActiveListEmpty(t *testing.T) {

	formatter := testFormatter()
	responses := formatter.ActiveList(nil, "officer")

	require.Len(t, responses, 1)
	assert.Contains(t, responses[0].(ResponseString).string, "None.")
}

func TestReviewNeededMentionsRole(t *testing.T) {

	formatter := testFormatter()
	response := formatter.ReviewNeeded("42", "123", 5)

	message := response.(ResponseString).string
	assert.Contains(t, message, "<@&42>")
	assert.Contains(t, message, "<@123>")
	assert.Contains(t, message, "**5 active strikes**")
}
