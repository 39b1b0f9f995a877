package bot

import (
	"fmt"
	"strings"

	"strikebot/internal/ledger"
)

// Show at most this many strikes when listing a single member
const maxStrikesShown = 15

// Discord rejects messages over 2000 characters, leave some headroom
const maxMessageLen = 1900

// Formatter renders ledger data into user-facing messages. It holds
// the pieces of configuration the texts need: the expiry window in
// days and the display label of each category tag
type Formatter struct {
	ExpiryDays int
	Labels     map[string]string
}

func (f *Formatter) Label(category ledger.Category) string {
	if label, ok := f.Labels[string(category)]; ok {
		return label
	}
	return string(category)
}

func (f *Formatter) strikeLine(record ledger.StrikeRecord) string {
	note := ""
	if record.Note != "" {
		note = fmt.Sprintf(" - %s", record.Note)
	}
	return fmt.Sprintf("• **%s** - <t:%d:f>%s", f.Label(record.Category), record.IssuedAt.Unix(), note)
}

func (f *Formatter) strikeLines(records []ledger.StrikeRecord) string {
	shown := records
	if len(shown) > maxStrikesShown {
		shown = shown[:maxStrikesShown]
	}
	lines := make([]string, 0, len(shown))
	for _, record := range shown {
		lines = append(lines, f.strikeLine(record))
	}
	out := strings.Join(lines, "\n")
	if len(records) > maxStrikesShown {
		out += fmt.Sprintf("\n\n(Showing most recent %d of %d.)", maxStrikesShown, len(records))
	}
	return out
}

func (f *Formatter) OwnStrikes(records []ledger.StrikeRecord) string {
	if len(records) == 0 {
		return fmt.Sprintf("You have **0** active strikes (rolling **%d days**).", f.ExpiryDays)
	}
	return fmt.Sprintf("Your active strikes (rolling **%d days**): **%d**\n\n%s", f.ExpiryDays, len(records), f.strikeLines(records))
}

func (f *Formatter) MemberStrikes(memberid string, records []ledger.StrikeRecord) string {
	if len(records) == 0 {
		return fmt.Sprintf("<@%s> has **0** active strikes (rolling **%d days**).", memberid, f.ExpiryDays)
	}
	return fmt.Sprintf("Active strikes for <@%s> (rolling **%d days**): **%d**\n\n%s", memberid, f.ExpiryDays, len(records), f.strikeLines(records))
}

func (f *Formatter) StrikeAdded(memberid string, category ledger.Category, note string, count int) string {
	out := fmt.Sprintf("✅ Strike added to <@%s>.\nMode: **%s**\nActive strikes (rolling **%d days**): **%d**", memberid, f.Label(category), f.ExpiryDays, count)
	if note != "" {
		out += fmt.Sprintf("\nNote: %s", note)
	}
	return out
}

func (f *Formatter) StrikeAddedLog(memberid string, category ledger.Category, note string, count int, issuerid string) Response {
	noteLine := "_(none)_"
	if note != "" {
		noteLine = fmt.Sprintf("**%s**", note)
	}
	return ResponseString{strings.Join([]string{
		"🟥 **Strike Added**",
		fmt.Sprintf("Member: <@%s> (%s)", memberid, memberid),
		fmt.Sprintf("Mode: **%s**", f.Label(category)),
		fmt.Sprintf("Note: %s", noteLine),
		fmt.Sprintf("Active strikes (rolling %d days): **%d**", f.ExpiryDays, count),
		fmt.Sprintf("By: <@%s> (%s)", issuerid, issuerid),
	}, "\n")}
}

func (f *Formatter) ReviewNeeded(roleid string, memberid string, threshold int) Response {
	return ResponseString{fmt.Sprintf("🚨 <@&%s> **Review Needed**\n<@%s> has reached **%d active strikes** (rolling %d days).", roleid, memberid, threshold, f.ExpiryDays)}
}

// ActiveList renders the community listing for the log channel,
// split into messages short enough for discord to accept
func (f *Formatter) ActiveList(counts []ledger.MemberCount, requesterid string) []Response {

	if len(counts) == 0 {
		return []Response{ResponseString{fmt.Sprintf("📋 **Active Strikes (rolling %d days)**\nNone. (Requested by <@%s>)", f.ExpiryDays, requesterid)}}
	}

	header := fmt.Sprintf("📋 **Active Strikes (rolling %d days)** - %d member(s)\n", f.ExpiryDays, len(counts))
	lines := make([]string, 0, len(counts))
	for _, row := range counts {
		lines = append(lines, fmt.Sprintf("• <@%s> - **%d**", row.Member, row.Count))
	}

	responses := []Response{}
	for _, chunk := range chunkLines(header, lines) {
		responses = append(responses, ResponseString{chunk})
	}
	responses = append(responses, ResponseString{fmt.Sprintf("Requested by: <@%s> (%s)", requesterid, requesterid)})
	return responses
}

func (f *Formatter) MemberReset(memberid string, previous int) string {
	return fmt.Sprintf("✅ Strikes reset for <@%s>. Old active total: **%d** → **0**", memberid, previous)
}

func (f *Formatter) MemberResetLog(memberid string, previous int, issuerid string) Response {
	return ResponseString{fmt.Sprintf("🟩 **Strikes Reset**\nMember: <@%s>\nOld active total: **%d** → **0**\nBy: <@%s>", memberid, previous, issuerid)}
}

func (f *Formatter) CommunityReset(previous int) string {
	return fmt.Sprintf("✅ ALL strikes reset. Members with active strikes before: **%d**", previous)
}

func (f *Formatter) CommunityResetLog(previous int, issuerid string) Response {
	return ResponseString{fmt.Sprintf("🟧 **RESET ALL**\nMembers with active strikes before: **%d**\nBy: <@%s>", previous, issuerid)}
}

func OnlineNotice() Response {
	return ResponseString{"✅ Strike bot online."}
}

func NotThisGuild() string {
	return "This bot is not configured for this server."
}

func OfficersOnly() string {
	return "Officers only."
}

func Throttled() string {
	return "You are sending commands too quickly. Try again in a moment."
}

func Cancelled() string {
	return "Cancelled."
}

func InvalidCategory(category string) string {
	return fmt.Sprintf("Mode `%s` is not one of the configured modes.", category)
}

func StorageTrouble() string {
	return "Could not update the strike records right now. Try again in a moment."
}

func UnknownSubcommand() string {
	return "Unknown subcommand."
}

// Pack lines under a repeated header into messages that stay below
// the discord message size limit
func chunkLines(header string, lines []string) []string {

	chunks := []string{}
	current := header
	for _, line := range lines {
		next := current
		if !strings.HasSuffix(next, "\n") {
			next += "\n"
		}
		next += line
		if len(next) > maxMessageLen {
			chunks = append(chunks, current)
			current = header + line
		} else {
			current = next
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}
	return chunks
}
