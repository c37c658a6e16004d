/* analytics.go
 * Contains the logic for the dashboard analytics tiles, computed from the
 * reconciled leaderboard so totals always agree with the rank table
 */

package logic

import (
	"fmt"
	"time"
)

// Stats is the analytics tile block.
type Stats struct {
	TotalUsers       int    `json:"total_users"`
	UsersWithPoints  int    `json:"users_with_points"`
	TotalChallenges  int    `json:"total_challenges"`
	TotalSubmissions int    `json:"total_submissions"`
	AverageScore     int    `json:"average_score"`
	TopScore         int    `json:"top_score"`
	TotalFirstBloods int    `json:"total_first_bloods"`
	TimeLeft         string `json:"time_left"`
}

// ComputeStats derives the analytics tiles from reconciled entries plus the
// totals the other resources report.
func ComputeStats(entries []RankedEntry, challengeCount, submissionTotal int, end *int64, now time.Time) Stats {
	stats := Stats{
		TotalUsers:       len(entries),
		TotalChallenges:  challengeCount,
		TotalSubmissions: submissionTotal,
		TimeLeft:         TimeLeft(end, now),
	}

	sum := 0
	for _, entry := range entries {
		if entry.Score > 0 {
			stats.UsersWithPoints++
		}
		if entry.Score > stats.TopScore {
			stats.TopScore = entry.Score
		}
		sum += entry.Score
		stats.TotalFirstBloods += entry.FirstBloods
	}
	if len(entries) > 0 {
		// Round to nearest, matching the displayed tile.
		stats.AverageScore = (sum + len(entries)/2) / len(entries)
	}
	return stats
}

// TimeLeft renders the remaining competition time the way the countdown tile
// shows it. A nil end time means the metadata endpoint never answered.
func TimeLeft(end *int64, now time.Time) string {
	if end == nil {
		return "Unknown"
	}

	remaining := time.Duration(*end-now.Unix()) * time.Second
	if remaining <= 0 {
		return "Ended"
	}

	days := int(remaining.Hours()) / 24
	hours := int(remaining.Hours()) % 24
	minutes := int(remaining.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
