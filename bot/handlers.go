/* handlers.go
 * Contains the command handlers and the message formatting helpers. The
 * formatting functions are pure so they can be tested without a session
 */

package bot

import (
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/go-andiamo/splitter"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"ctfd-board/api/api"
	"ctfd-board/api/logic"
	"ctfd-board/api/shared"
)

// helpHandler handles the $help command
func (b *Bot) helpHandler(session DiscordSession, message *discordgo.MessageCreate) {
	var res strings.Builder
	res.WriteString("CTF Dashboard Bot\n")
	res.WriteString("`$top`: shows the current leaderboard standings\n")
	res.WriteString("`$stats`: shows the competition analytics (totals, average score, time left)\n")
	res.WriteString("`$challenges`: lists the challenges with categories, points and solve counts\n")
	res.WriteString("`$solves <challenge>`: shows the solve count and first blood for a challenge. Names that contain spaces need to be encased in \" (e.g. \"Baby Pwn\")\n")
	res.WriteString("`$refresh`: forces an immediate re-poll of the competition API\n")
	session.ChannelMessageSend(message.ChannelID, res.String())
}

// topHandler handles the $top command
func (b *Bot) topHandler(session DiscordSession, message *discordgo.MessageCreate) {
	entries, err := b.APIPtr.Scoreboard()
	session.ChannelMessageSend(message.ChannelID, formatScoreboard(entries, err))
}

// statsHandler handles the $stats command
func (b *Bot) statsHandler(session DiscordSession, message *discordgo.MessageCreate) {
	stats := b.APIPtr.Stats()
	meta := b.APIPtr.Meta()
	session.ChannelMessageSend(message.ChannelID, formatStats(stats, meta))
}

// challengesHandler handles the $challenges command
func (b *Bot) challengesHandler(session DiscordSession, message *discordgo.MessageCreate) {
	challenges, err := b.APIPtr.Challenges()
	if err != nil && len(challenges) == 0 {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, "An error occured getting the challenge list")
		return
	}
	session.ChannelMessageSend(message.ChannelID, formatChallenges(challenges))
}

// solvesHandler handles the $solves command
func (b *Bot) solvesHandler(session DiscordSession, message *discordgo.MessageCreate) {
	// we use splitter here instead of go's built in splitter because now we can
	// have challenge names that contain spaces e.g. "Baby Pwn" recognised as one name not two
	spaceSplitter, _ := splitter.NewSplitter(' ', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)
	parts, _ := spaceSplitter.Split(message.Content)
	if len(parts) < 2 {
		session.ChannelMessageSend(message.ChannelID, "Usage: $solves <challenge name>")
		return
	}
	query := strings.Trim(strings.Join(parts[1:], " "), "\"“”")

	challenges, _ := b.APIPtr.Challenges()
	challenge, ok := findChallenge(challenges, query)
	if !ok {
		session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("No challenge matching %q was found", query))
		return
	}
	session.ChannelMessageSend(message.ChannelID, formatChallengeSolves(challenge))
}

// refreshHandler handles the $refresh command
func (b *Bot) refreshHandler(session DiscordSession, message *discordgo.MessageCreate) {
	b.APIPtr.Refresh()
	session.ChannelMessageSend(message.ChannelID, "Refreshing dashboard data...")
}

// findChallenge fuzzy matches a user-typed name against the catalog, the same
// way user input gets matched elsewhere: exact match wins, otherwise the best
// ranked fuzzy result.
func findChallenge(challenges []api.ChallengeView, query string) (api.ChallengeView, bool) {
	lowerQuery := strings.ToLower(query)

	lookup := make(map[string]api.ChallengeView, len(challenges))
	names := make([]string, 0, len(challenges))
	for _, challenge := range challenges {
		lower := strings.ToLower(challenge.Name)
		lookup[lower] = challenge
		names = append(names, lower)
	}

	if challenge, ok := lookup[lowerQuery]; ok {
		return challenge, true
	}

	results := fuzzy.RankFind(lowerQuery, names)
	if len(results) == 0 {
		return api.ChallengeView{}, false
	}
	best := results[0]
	for _, result := range results {
		if result.Distance < best.Distance {
			best = result
		}
	}
	return lookup[best.Target], true
}

func formatScoreboard(entries []logic.RankedEntry, err error) string {
	if len(entries) == 0 {
		if err != nil {
			return "An error occurred getting the leaderboard"
		}
		return "The leaderboard is empty"
	}

	var res strings.Builder
	res.WriteString("Current standings:\n")
	for _, entry := range entries {
		res.WriteString(fmt.Sprintf("%d. %s — %d pts (%d solves", entry.Rank, entry.Name, entry.Score, entry.SolvedChallenges))
		if entry.FirstBloods > 0 {
			res.WriteString(fmt.Sprintf(", %d first bloods", entry.FirstBloods))
		}
		res.WriteString(")\n")
	}
	if err != nil {
		res.WriteString("(data may be stale: the last poll failed)\n")
	}
	return res.String()
}

func formatStats(stats logic.Stats, meta shared.CompetitionMeta) string {
	var res strings.Builder
	if meta.Name != "" {
		res.WriteString(fmt.Sprintf("%s\n", meta.Name))
	}
	res.WriteString(fmt.Sprintf("Participants: %d (%d with points)\n", stats.TotalUsers, stats.UsersWithPoints))
	res.WriteString(fmt.Sprintf("Challenges: %d\n", stats.TotalChallenges))
	res.WriteString(fmt.Sprintf("Correct submissions: %d\n", stats.TotalSubmissions))
	res.WriteString(fmt.Sprintf("Top score: %d, average score: %d\n", stats.TopScore, stats.AverageScore))
	res.WriteString(fmt.Sprintf("First bloods: %d\n", stats.TotalFirstBloods))
	res.WriteString(fmt.Sprintf("Time left: %s\n", stats.TimeLeft))
	return res.String()
}

func formatChallenges(challenges []api.ChallengeView) string {
	if len(challenges) == 0 {
		return "No challenges are visible yet"
	}

	var res strings.Builder
	res.WriteString("Challenges:\n")
	for _, challenge := range challenges {
		res.WriteString(fmt.Sprintf("- %s [%s]", challenge.Name, challenge.NormalizedCategory))
		if challenge.Practice {
			res.WriteString(" (practice)")
		} else {
			res.WriteString(fmt.Sprintf(" %d pts", challenge.Value))
		}
		res.WriteString(fmt.Sprintf(", %d solves", challenge.Solves))
		if challenge.SolvedByMe {
			res.WriteString(" ✓")
		}
		res.WriteString("\n")
	}
	return res.String()
}

func formatChallengeSolves(challenge api.ChallengeView) string {
	var res strings.Builder
	res.WriteString(fmt.Sprintf("%s [%s]", challenge.Name, challenge.NormalizedCategory))
	if !challenge.Practice {
		res.WriteString(fmt.Sprintf(" — %d pts", challenge.Value))
	}
	res.WriteString(fmt.Sprintf("\nSolves: %d\n", challenge.Solves))
	switch {
	case challenge.FirstBloodName != "":
		res.WriteString(fmt.Sprintf("First blood: %s\n", challenge.FirstBloodName))
	case challenge.Solves > 0:
		res.WriteString("First blood: resolving...\n")
	default:
		res.WriteString("First blood: unclaimed\n")
	}
	return res.String()
}

func formatFirstBlood(event *shared.FirstBloodEvent) string {
	if event == nil {
		return ""
	}
	msg := fmt.Sprintf("🩸 FIRST BLOOD! **%s** [%s, %d pts] has been solved", event.ChallengeName, logic.NormalizeCategory(event.Category), event.Value)
	if event.SolverName != "" {
		msg += fmt.Sprintf(" by **%s**", event.SolverName)
	}
	return msg + "!"
}

func formatLeaderChange(event *shared.LeaderChangeEvent) string {
	if event == nil {
		return ""
	}
	return fmt.Sprintf("👑 **%s** takes the lead from **%s**!", event.NewName, event.PreviousName)
}
