/* models.go
 * Contains the view structs the facade hands to presentation layers
 */

package api

import (
	"ctfd-board/api/shared"
)

// ChallengeView is a catalog entry enriched with everything a display needs:
// the normalized category for color-coding, the practice flag for non-scored
// challenges and the first-blood attribution once it has resolved.
type ChallengeView struct {
	shared.Challenge
	NormalizedCategory string `json:"normalized_category"`
	Practice           bool   `json:"practice"`
	FirstBloodID       int    `json:"first_blood_id,omitempty"`
	FirstBloodName     string `json:"first_blood_name,omitempty"`
}
