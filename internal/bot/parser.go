package bot

import (
	"github.com/bwmarrin/discordgo"
)

const (
	SUBCOMMAND_ME       = "me"
	SUBCOMMAND_ADD      = "add"
	SUBCOMMAND_MEMBER   = "member"
	SUBCOMMAND_ALL      = "all"
	SUBCOMMAND_RESET    = "reset"
	SUBCOMMAND_RESETALL = "resetall"
)

// One parsed /strikes invocation, flattened out of the interaction
// options so the handlers only deal with plain strings
type Request struct {
	Subcommand string
	TargetId   string
	Category   string
	Note       string
	Confirm    string
}

// OfficerOnly reports whether this subcommand is gated behind the
// officer role. Only "me" is open to everyone
func (req *Request) OfficerOnly() bool {
	return req.Subcommand != SUBCOMMAND_ME
}

// Parse the interaction data of a /strikes command into a Request.
// Option presence is defined by the registered command, so absent
// optional values simply stay empty
func Parse(data discordgo.ApplicationCommandInteractionData) Request {

	var req Request
	if len(data.Options) == 0 {
		return req
	}

	sub := data.Options[0]
	req.Subcommand = sub.Name
	for _, option := range sub.Options {
		switch option.Name {
		case "member":
			if option.Type != discordgo.ApplicationCommandOptionUser {
				continue
			}
			// User options carry the id as a string; anything else
			// leaves the target empty rather than panicking
			if value, ok := option.Value.(string); ok {
				req.TargetId = value
			}
		case "mode":
			req.Category = option.StringValue()
		case "note":
			req.Note = option.StringValue()
		case "confirm":
			req.Confirm = option.StringValue()
		}
	}
	return req
}
