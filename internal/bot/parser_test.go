package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func option(name string, optionType discordgo.ApplicationCommandOptionType, value interface{}) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: optionType, Value: value}
}

func subcommand(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) discordgo.ApplicationCommandInteractionData {
	return discordgo.ApplicationCommandInteractionData{
		Name: commandName,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: options},
		},
	}
}

func TestParseAdd(t *testing.T) {

	req := Parse(subcommand(SUBCOMMAND_ADD,
		option("member", discordgo.ApplicationCommandOptionUser, "123"),
		option("mode", discordgo.ApplicationCommandOptionString, "tb"),
		option("note", discordgo.ApplicationCommandOptionString, "no deploy"),
	))

	assert.Equal(t, SUBCOMMAND_ADD, req.Subcommand)
	assert.Equal(t, "123", req.TargetId)
	assert.Equal(t, "tb", req.Category)
	assert.Equal(t, "no deploy", req.Note)
	assert.True(t, req.OfficerOnly())
}

func TestParseAddWithoutNote(t *testing.T) {

	req := Parse(subcommand(SUBCOMMAND_ADD,
		option("member", discordgo.ApplicationCommandOptionUser, "123"),
		option("mode", discordgo.ApplicationCommandOptionString, "raid"),
	))

	assert.Equal(t, "raid", req.Category)
	assert.Empty(t, req.Note)
}

func TestParseMe(t *testing.T) {

	req := Parse(subcommand(SUBCOMMAND_ME))

	assert.Equal(t, SUBCOMMAND_ME, req.Subcommand)
	assert.False(t, req.OfficerOnly())
}

func TestParseResetAll(t *testing.T) {

	req := Parse(subcommand(SUBCOMMAND_RESETALL,
		option("confirm", discordgo.ApplicationCommandOptionString, "YES"),
	))

	assert.Equal(t, SUBCOMMAND_RESETALL, req.Subcommand)
	assert.Equal(t, "YES", req.Confirm)
	assert.True(t, req.OfficerOnly())
}

// A member option whose value is not a string must not panic the
// handler; the target just stays empty
func TestParseMemberValueNotAString(t *testing.T) {

	req := Parse(subcommand(SUBCOMMAND_MEMBER,
		option("member", discordgo.ApplicationCommandOptionUser, 123.0),
	))

	assert.Equal(t, SUBCOMMAND_MEMBER, req.Subcommand)
	assert.Empty(t, req.TargetId)
}

func TestParseNoOptions(t *testing.T) {

	req := Parse(discordgo.ApplicationCommandInteractionData{Name: commandName})

	assert.Empty(t, req.Subcommand)
}
