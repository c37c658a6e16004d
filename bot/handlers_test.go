/* handlers_test.go
 * Contains unit tests for bot command handlers using mock Discord session
 */

package bot

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctfd-board/api/api"
	"ctfd-board/api/logic"
	"ctfd-board/api/shared"
)

// createTestBot creates a Bot over an unconfigured facade: commands work
// against empty local state without any network calls
func createTestBot(t *testing.T) *Bot {
	t.Helper()
	apiPtr, err := api.NewAPI(api.Config{})
	require.NoError(t, err)

	return &Bot{
		BotToken: "test_token",
		APIPtr:   apiPtr,
	}
}

func command(content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{ChannelID: "test_channel", Content: content},
	}
}

// region command handler tests

func TestHelpHandler_ListsCommands(t *testing.T) {
	bot := createTestBot(t)
	session := NewMockDiscordSession()

	bot.handleCommand(session, command("$help"))

	require.Len(t, session.SentMessages, 1)
	last := session.GetLastMessage()
	assert.Equal(t, "test_channel", last.ChannelID)
	for _, name := range []string{"$top", "$stats", "$challenges", "$solves", "$refresh"} {
		assert.Contains(t, last.Content, name)
	}
}

func TestTopHandler_EmptyLeaderboard(t *testing.T) {
	bot := createTestBot(t)
	session := NewMockDiscordSession()

	bot.handleCommand(session, command("$top"))

	assert.Equal(t, "The leaderboard is empty", session.GetLastMessage().Content)
}

func TestChallengesHandler_EmptyCatalog(t *testing.T) {
	bot := createTestBot(t)
	session := NewMockDiscordSession()

	bot.handleCommand(session, command("$challenges"))

	assert.Equal(t, "No challenges are visible yet", session.GetLastMessage().Content)
}

func TestSolvesHandler_RequiresChallengeName(t *testing.T) {
	bot := createTestBot(t)
	session := NewMockDiscordSession()

	bot.handleCommand(session, command("$solves"))

	assert.Contains(t, session.GetLastMessage().Content, "Usage:")
}

func TestSolvesHandler_UnknownChallenge(t *testing.T) {
	bot := createTestBot(t)
	session := NewMockDiscordSession()

	bot.handleCommand(session, command("$solves \"Baby Pwn\""))

	assert.Contains(t, session.GetLastMessage().Content, "No challenge matching")
	assert.Contains(t, session.GetLastMessage().Content, "Baby Pwn")
}

func TestStatsHandler_EmptyState(t *testing.T) {
	bot := createTestBot(t)
	session := NewMockDiscordSession()

	bot.handleCommand(session, command("$stats"))

	content := session.GetLastMessage().Content
	assert.Contains(t, content, "Participants: 0")
	assert.Contains(t, content, "Time left: Unknown")
}

func TestRefreshHandler_Acknowledges(t *testing.T) {
	bot := createTestBot(t)
	session := NewMockDiscordSession()

	bot.handleCommand(session, command("$refresh"))

	assert.Contains(t, session.GetLastMessage().Content, "Refreshing")
}

func TestHandleCommand_IgnoresUnknownCommands(t *testing.T) {
	bot := createTestBot(t)
	session := NewMockDiscordSession()

	bot.handleCommand(session, command("hello there"))
	bot.handleCommand(session, command("$unknown"))

	assert.Empty(t, session.SentMessages)
}

// endregion

// region challenge lookup tests

func testCatalog() []api.ChallengeView {
	return []api.ChallengeView{
		{Challenge: shared.Challenge{ID: 5, Name: "Baby Pwn", Value: 100, Solves: 3}, NormalizedCategory: "pwn"},
		{Challenge: shared.Challenge{ID: 6, Name: "Hashes", Value: 200, Solves: 1}, NormalizedCategory: "crypto"},
		{Challenge: shared.Challenge{ID: 7, Name: "Sanity Check", Value: 0, Solves: 30}, NormalizedCategory: "misc", Practice: true},
	}
}

func TestFindChallenge_ExactMatchWins(t *testing.T) {
	challenge, ok := findChallenge(testCatalog(), "baby pwn")

	require.True(t, ok)
	assert.Equal(t, 5, challenge.ID)
}

func TestFindChallenge_FuzzyMatch(t *testing.T) {
	challenge, ok := findChallenge(testCatalog(), "baby")

	require.True(t, ok)
	assert.Equal(t, "Baby Pwn", challenge.Name)

	challenge, ok = findChallenge(testCatalog(), "hash")
	require.True(t, ok)
	assert.Equal(t, "Hashes", challenge.Name)
}

func TestFindChallenge_NoMatch(t *testing.T) {
	_, ok := findChallenge(testCatalog(), "zzzzzz")

	assert.False(t, ok)
}

func TestFindChallenge_EmptyCatalog(t *testing.T) {
	_, ok := findChallenge(nil, "anything")

	assert.False(t, ok)
}

// endregion

// region formatting tests

func TestFormatScoreboard_RendersRanksAndBloods(t *testing.T) {
	entries := []logic.RankedEntry{
		{Rank: 1, Name: "alpha", Score: 500, SolvedChallenges: 3, FirstBloods: 2},
		{Rank: 2, Name: "beta", Score: 300, SolvedChallenges: 1},
	}

	out := formatScoreboard(entries, nil)

	assert.Contains(t, out, "1. alpha — 500 pts (3 solves, 2 first bloods)")
	assert.Contains(t, out, "2. beta — 300 pts (1 solves)")
	assert.NotContains(t, out, "stale")
}

func TestFormatScoreboard_StaleNote(t *testing.T) {
	entries := []logic.RankedEntry{{Rank: 1, Name: "alpha", Score: 500}}

	out := formatScoreboard(entries, assert.AnError)

	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "stale")
}

func TestFormatScoreboard_ErrorWithNoData(t *testing.T) {
	out := formatScoreboard(nil, assert.AnError)

	assert.Contains(t, out, "error")
}

func TestFormatChallenges_MarksPracticeAndSolved(t *testing.T) {
	catalog := testCatalog()
	catalog[1].SolvedByMe = true

	out := formatChallenges(catalog)

	assert.Contains(t, out, "Baby Pwn [pwn] 100 pts, 3 solves")
	assert.Contains(t, out, "Hashes [crypto] 200 pts, 1 solves ✓")
	assert.Contains(t, out, "Sanity Check [misc] (practice), 30 solves")
}

func TestFormatChallengeSolves_AttributionStates(t *testing.T) {
	solved := testCatalog()[0]
	solved.FirstBloodName = "alice"
	assert.Contains(t, formatChallengeSolves(solved), "First blood: alice")

	resolving := testCatalog()[0]
	assert.Contains(t, formatChallengeSolves(resolving), "First blood: resolving...")

	unclaimed := testCatalog()[0]
	unclaimed.Solves = 0
	assert.Contains(t, formatChallengeSolves(unclaimed), "First blood: unclaimed")
}

func TestFormatFirstBlood(t *testing.T) {
	event := &shared.FirstBloodEvent{
		ChallengeID:   5,
		ChallengeName: "Baby Pwn",
		Category:      "Binary Exploitation",
		Value:         100,
	}

	out := formatFirstBlood(event)
	assert.Contains(t, out, "FIRST BLOOD!")
	assert.Contains(t, out, "**Baby Pwn** [pwn, 100 pts]")
	assert.NotContains(t, out, "by **")

	event.SolverName = "alice"
	assert.Contains(t, formatFirstBlood(event), "by **alice**")

	assert.Equal(t, "", formatFirstBlood(nil))
}

func TestFormatLeaderChange(t *testing.T) {
	event := &shared.LeaderChangeEvent{
		PreviousID: 3, PreviousName: "alpha",
		NewID: 7, NewName: "beta",
	}

	out := formatLeaderChange(event)
	assert.Contains(t, out, "**beta** takes the lead from **alpha**")

	assert.Equal(t, "", formatLeaderChange(nil))
}

func TestAnnounceEvents_PostsFormattedMessages(t *testing.T) {
	bot := createTestBot(t)
	bot.ChannelID = "announce_channel"
	session := NewMockDiscordSession()

	events := make(chan shared.Event, 2)
	events <- shared.Event{
		Type:       shared.EventFirstBlood,
		Time:       time.Now(),
		FirstBlood: &shared.FirstBloodEvent{ChallengeID: 5, ChallengeName: "Baby Pwn", Category: "pwn", Value: 100},
	}
	events <- shared.Event{
		Type:         shared.EventLeaderChange,
		Time:         time.Now(),
		LeaderChange: &shared.LeaderChangeEvent{PreviousID: 3, PreviousName: "alpha", NewID: 7, NewName: "beta"},
	}
	close(events)

	bot.announceEvents(session, events)

	require.Len(t, session.SentMessages, 2)
	assert.Equal(t, "announce_channel", session.SentMessages[0].ChannelID)
	assert.Contains(t, session.SentMessages[0].Content, "FIRST BLOOD")
	assert.Contains(t, session.SentMessages[1].Content, "takes the lead")
}

func TestAnnounceEvents_SkipsMalformedEvents(t *testing.T) {
	bot := createTestBot(t)
	bot.ChannelID = "announce_channel"
	session := NewMockDiscordSession()

	events := make(chan shared.Event, 1)
	events <- shared.Event{Type: "unknown_event"}
	close(events)

	bot.announceEvents(session, events)

	assert.Empty(t, session.SentMessages)
}

// endregion
