package bot

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"time"

	"strikebot/internal/common"
	"strikebot/internal/config"
	"strikebot/internal/ledger"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const commandName = "strikes"

// How often the main loop wakes up to check the housekeeping timer
const mainCycle = time.Minute

// Bot is the discord shim around the strike ledger. It registers the
// /strikes command family, gates the officer subcommands behind the
// configured role and turns ledger results into channel messages.
// All strike semantics live in the ledger; the bot only formats and
// delivers
type Bot struct {
	token                  string
	ledger                 *ledger.Ledger
	formatter              Formatter
	throttle               *common.Throttle
	housekeepingExecutor   common.TimedExecutor
	applicationId          string
	guildId                string
	officerRoleId          string
	reviewChannelId        string
	logChannelId           string
	threshold              int
	categories             []config.CategoryConfig
}

func NewBot(token string, cfg config.Config, ldgr *ledger.Ledger) (Bot, error) {

	if token == "" {
		return Bot{}, fmt.Errorf("discord token is empty")
	}

	labels := map[string]string{}
	for _, category := range cfg.Categories {
		labels[category.Tag] = category.Label
	}

	bot := Bot{
		token:           token,
		ledger:          ldgr,
		formatter:       Formatter{ExpiryDays: cfg.Ledger.ExpiryDays, Labels: labels},
		throttle:        common.NewThrottle(common.Restriction{Requests: cfg.Throttle.Commands, Duration: cfg.Throttle.Per.Duration}),
		applicationId:   cfg.Discord.ApplicationId,
		guildId:         cfg.Discord.GuildId,
		officerRoleId:   cfg.Discord.OfficerRoleId,
		reviewChannelId: cfg.Discord.ReviewChannelId,
		logChannelId:    cfg.Discord.LogChannelId,
		threshold:       cfg.Ledger.ReviewThreshold,
		categories:      cfg.Categories,
	}
	bot.housekeepingExecutor = common.NewTimedExecutor(cfg.Housekeeping.Interval.Duration, func() { housekeeping(ldgr) })
	return bot, nil
}

func (bot *Bot) Run() error {

	// Create session
	discord, err := discordgo.New("Bot " + bot.token)
	if err != nil {
		return fmt.Errorf("could not create discord session: %w", err)
	}
	discord.Identify.Intents = discordgo.IntentsGuilds

	// Event handler
	discord.AddHandler(bot.Receive)

	// Open session
	if err := discord.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	defer discord.Close()

	if err := bot.registerCommands(discord); err != nil {
		return err
	}

	// Show in the log channel that the bot is up, which also
	// verifies the configured channel id
	OnlineNotice().Send(bot.logChannelId, discord)

	// Keep the bot running until there is an os interruption,
	// waking up periodically for housekeeping
	log.Info().Str("guild", bot.guildId).Msg("Bot is running")
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	ticker := time.NewTicker(mainCycle)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			bot.housekeepingExecutor.Execute()
		case <-c:
			log.Info().Msg("Shutting down")
			return nil
		}
	}
}

// Register the /strikes command for the configured guild. Overwrite
// with an empty set first so removed subcommands actually disappear
func (bot *Bot) registerCommands(discord *discordgo.Session) error {

	applicationId := bot.applicationId
	if applicationId == "" {
		applicationId = discord.State.User.ID
	}

	if _, err := discord.ApplicationCommandBulkOverwrite(applicationId, bot.guildId, []*discordgo.ApplicationCommand{}); err != nil {
		return fmt.Errorf("could not clear guild commands: %w", err)
	}
	if _, err := discord.ApplicationCommandBulkOverwrite(applicationId, bot.guildId, []*discordgo.ApplicationCommand{bot.command()}); err != nil {
		return fmt.Errorf("could not register guild commands: %w", err)
	}
	log.Info().Str("guild", bot.guildId).Msg("Registered guild commands")
	return nil
}

func (bot *Bot) command() *discordgo.ApplicationCommand {

	modeChoices := []*discordgo.ApplicationCommandOptionChoice{}
	for _, category := range bot.categories {
		modeChoices = append(modeChoices, &discordgo.ApplicationCommandOptionChoice{Name: category.Label, Value: category.Tag})
	}

	memberOption := func() *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "member",
			Description: "Member",
			Required:    true,
		}
	}

	return &discordgo.ApplicationCommand{
		Name:        commandName,
		Description: "Strike tracking",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SUBCOMMAND_ME,
				Description: "Show your active strikes",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SUBCOMMAND_ADD,
				Description: "Add a strike to a member (officers only)",
				Options: []*discordgo.ApplicationCommandOption{
					memberOption(),
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "mode",
						Description: "Mode",
						Required:    true,
						Choices:     modeChoices,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "note",
						Description: "Optional note",
						Required:    false,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SUBCOMMAND_MEMBER,
				Description: "Show strikes for a member (officers only)",
				Options:     []*discordgo.ApplicationCommandOption{memberOption()},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SUBCOMMAND_ALL,
				Description: "List everyone with active strikes (officers only)",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SUBCOMMAND_RESET,
				Description: "Reset strikes for a member (officers only)",
				Options:     []*discordgo.ApplicationCommandOption{memberOption()},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SUBCOMMAND_RESETALL,
				Description: "Reset ALL strikes (officers only, dangerous)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "confirm",
						Description: "Type \"YES\" to confirm",
						Required:    true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "YES", Value: "YES"},
						},
					},
				},
			},
		},
	}
}

func (bot *Bot) Receive(discord *discordgo.Session, interaction *discordgo.InteractionCreate) {

	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := interaction.ApplicationCommandData()
	if data.Name != commandName {
		return
	}

	// Acknowledge quickly to avoid the interaction timeout
	if err := bot.acknowledge(discord, interaction); err != nil {
		log.Error().Err(err).Msg("Could not acknowledge interaction")
		return
	}

	// Hard lock to the configured guild
	if interaction.GuildID != bot.guildId {
		log.Debug().Str("guild", interaction.GuildID).Msg("Rejecting interaction from another guild")
		bot.reply(discord, interaction, NotThisGuild())
		return
	}

	// Interactions outside a guild carry no member
	issuer, ok := issuerId(interaction)
	if !ok {
		log.Debug().Msg("Rejecting interaction without a guild member")
		bot.reply(discord, interaction, NotThisGuild())
		return
	}
	if !bot.throttle.Allow(issuer) {
		bot.reply(discord, interaction, Throttled())
		return
	}

	req := Parse(data)
	log.Info().Str("subcommand", req.Subcommand).Str("issuer", issuer).Msg("Command received")
	if req.OfficerOnly() && !bot.isOfficer(interaction.Member) {
		log.Debug().Str("issuer", issuer).Msg("Rejecting non officer")
		bot.reply(discord, interaction, OfficersOnly())
		return
	}

	community := ledger.CommunityId(interaction.GuildID)
	var reply string
	switch req.Subcommand {
	case SUBCOMMAND_ME:
		reply = bot.me(community, issuer)
	case SUBCOMMAND_ADD:
		reply = bot.add(discord, community, issuer, req)
	case SUBCOMMAND_MEMBER:
		reply = bot.member(community, req.TargetId)
	case SUBCOMMAND_ALL:
		reply = bot.all(discord, community, issuer)
	case SUBCOMMAND_RESET:
		reply = bot.reset(discord, community, issuer, req.TargetId)
	case SUBCOMMAND_RESETALL:
		reply = bot.resetAll(discord, community, issuer, req.Confirm)
	default:
		reply = UnknownSubcommand()
	}
	bot.reply(discord, interaction, reply)
}

func (bot *Bot) me(community ledger.CommunityId, issuer string) string {
	records := bot.ledger.GetActiveStrikes(community, ledger.MemberId(issuer))
	return bot.formatter.OwnStrikes(records)
}

func (bot *Bot) add(discord *discordgo.Session, community ledger.CommunityId, issuer string, req Request) string {

	category := ledger.Category(req.Category)
	count, crossed, err := bot.ledger.AddStrike(community, ledger.MemberId(req.TargetId), category, req.Note, ledger.MemberId(issuer))
	if errors.Is(err, ledger.ErrInvalidCategory) {
		return InvalidCategory(req.Category)
	}
	if err != nil {
		return StorageTrouble()
	}

	bot.formatter.StrikeAddedLog(req.TargetId, category, req.Note, count, issuer).Send(bot.logChannelId, discord)
	if crossed {
		bot.formatter.ReviewNeeded(bot.officerRoleId, req.TargetId, bot.threshold).Send(bot.reviewChannelId, discord)
	}
	return bot.formatter.StrikeAdded(req.TargetId, category, req.Note, count)
}

func (bot *Bot) member(community ledger.CommunityId, targetid string) string {
	records := bot.ledger.GetActiveStrikes(community, ledger.MemberId(targetid))
	return bot.formatter.MemberStrikes(targetid, records)
}

func (bot *Bot) all(discord *discordgo.Session, community ledger.CommunityId, issuer string) string {

	counts := bot.ledger.ListActiveMembers(community)

	// The listing goes to the log channel so officers see it there
	for _, response := range bot.formatter.ActiveList(counts, issuer) {
		response.Send(bot.logChannelId, discord)
	}
	if len(counts) == 0 {
		return fmt.Sprintf("✅ No active strikes (rolling **%d days**).", bot.formatter.ExpiryDays)
	}
	return fmt.Sprintf("✅ Posted the active strike list in <#%s>.", bot.logChannelId)
}

func (bot *Bot) reset(discord *discordgo.Session, community ledger.CommunityId, issuer string, targetid string) string {

	previous, err := bot.ledger.ResetMember(community, ledger.MemberId(targetid))
	if err != nil {
		return StorageTrouble()
	}
	bot.formatter.MemberResetLog(targetid, previous, issuer).Send(bot.logChannelId, discord)
	return bot.formatter.MemberReset(targetid, previous)
}

func (bot *Bot) resetAll(discord *discordgo.Session, community ledger.CommunityId, issuer string, confirm string) string {

	if confirm != "YES" {
		return Cancelled()
	}
	previous, err := bot.ledger.ResetCommunity(community)
	if err != nil {
		return StorageTrouble()
	}
	bot.formatter.CommunityResetLog(previous, issuer).Send(bot.logChannelId, discord)
	return bot.formatter.CommunityReset(previous)
}

func issuerId(interaction *discordgo.InteractionCreate) (string, bool) {
	if interaction.Member == nil || interaction.Member.User == nil {
		return "", false
	}
	return interaction.Member.User.ID, true
}

func (bot *Bot) isOfficer(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	return slices.Contains(member.Roles, bot.officerRoleId)
}

func (bot *Bot) acknowledge(discord *discordgo.Session, interaction *discordgo.InteractionCreate) error {
	return discord.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (bot *Bot) reply(discord *discordgo.Session, interaction *discordgo.InteractionCreate, content string) {
	if _, err := discord.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		log.Error().Err(err).Msg("Could not edit interaction response")
	}
}

// Periodic sweep of expired strikes across the whole store
func housekeeping(ldgr *ledger.Ledger) {
	changed, err := ldgr.PruneAll()
	if err != nil {
		log.Warn().Err(err).Msg("Housekeeping prune failed")
		return
	}
	if changed {
		log.Debug().Msg("Housekeeping removed expired strikes")
	}
}
