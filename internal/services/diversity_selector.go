package services

import (
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

// Selection tunables. The periodic amplification every fifth pick is a
// tuning heuristic, not a hard invariant.
const (
	artistRepeatPenalty = 0.3
	penaltyAmplify      = 1.5
	penaltyAmplifyEvery = 5

	admissionThreshold = 0.2
	lenientWindowRatio = 0.7
	underfillDiscount  = 0.8

	defaultDiversityWeight = 0.3
)

// DiversitySelector greedily picks the final list from ranked candidates,
// penalizing repeated artists and enforcing a minimum-score admission
// threshold with a graceful under-fill fallback.
type DiversitySelector struct {
	logger *logrus.Logger
}

func NewDiversitySelector(logger *logrus.Logger) *DiversitySelector {
	return &DiversitySelector{logger: logger}
}

// Select walks the ranked pool in order and admits tracks whose
// diversity-adjusted score clears the threshold. The first
// ceil(lenientWindowRatio*target) slots are lenient so a harsh pool cannot
// starve the list; if the pool still under-fills, the best remaining
// tracks are appended at a discount until min(target, poolSize) is
// reached.
func (s *DiversitySelector) Select(ranked []models.Track, target int, diversityWeight float64) []models.Track {
	if target <= 0 || len(ranked) == 0 {
		return nil
	}
	if diversityWeight < 0 || diversityWeight > 1 {
		diversityWeight = defaultDiversityWeight
	}

	lenientSlots := int(math.Ceil(lenientWindowRatio * float64(target)))
	seenArtists := make(map[string]struct{})
	selectedIDs := make(map[string]struct{})
	amplifier := 1.0
	lastAmplified := 0

	var selected []models.Track
	for _, track := range ranked {
		if len(selected) >= target {
			break
		}

		// Periodic diversity emphasis: the repeat penalty grows each time
		// the list crosses a multiple of five.
		if n := len(selected); n > 0 && n%penaltyAmplifyEvery == 0 && n != lastAmplified {
			amplifier *= penaltyAmplify
			lastAmplified = n
		}

		penalty := 0.0
		if anyArtistSeen(track.Artists, seenArtists) {
			penalty = artistRepeatPenalty * amplifier
		}

		adjusted := track.Score * (1 - penalty*diversityWeight)
		if adjusted <= admissionThreshold && len(selected) >= lenientSlots {
			continue
		}

		selected = append(selected, track)
		selectedIDs[track.ID] = struct{}{}
		for _, artist := range track.Artists {
			seenArtists[strings.ToLower(artist)] = struct{}{}
		}
	}

	// Under-fill fallback: top up from the remaining pool at a discount.
	if len(selected) < target {
		for _, track := range ranked {
			if len(selected) >= target {
				break
			}
			if _, ok := selectedIDs[track.ID]; ok {
				continue
			}
			track.Score *= underfillDiscount
			selected = append(selected, track)
			selectedIDs[track.ID] = struct{}{}
		}
		s.logger.WithFields(logrus.Fields{
			"target":   target,
			"selected": len(selected),
			"pool":     len(ranked),
		}).Debug("Diversity selection under-filled, applied fallback fill")
	}

	return selected
}

func anyArtistSeen(artists []string, seen map[string]struct{}) bool {
	for _, artist := range artists {
		if _, ok := seen[strings.ToLower(artist)]; ok {
			return true
		}
	}
	return false
}
