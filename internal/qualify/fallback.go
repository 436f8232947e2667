package qualify

import (
	"fmt"
	"sort"
	"strings"
)

// HeuristicSelect is the deterministic, non-AI ranking used when the
// narrowing engine cannot be invoked at all. Scoring per candidate:
//
//	+15 for each campaign topic matching any candidate topic
//	    (case-insensitive substring containment in either direction,
//	    counted once per campaign topic)
//	+1 per 10,000 followers, capped at 20
//	+10 when a transcript was successfully acquired
//
// Identical inputs always produce identical output ordering.
func HeuristicSelect(results []TranscriptResult, campaignTopics []string, limit int) []Stage2Selection {
	if limit <= 0 {
		limit = 10
	}

	type scored struct {
		index   int
		result  *TranscriptResult
		score   float64
		matched []string
	}

	entries := make([]scored, 0, len(results))
	for i := range results {
		r := &results[i]
		score := 0.0

		var matched []string
		for _, ct := range campaignTopics {
			if topicMatches(ct, r.Topics) {
				score += 15
				matched = append(matched, ct)
			}
		}

		followerPoints := float64(r.Followers) / 10000.0
		if followerPoints > 20 {
			followerPoints = 20
		}
		score += followerPoints

		if r.Status == StatusSuccess {
			score += 10
		}

		// Candidates scoring zero have no signal worth surfacing.
		if score <= 0 {
			continue
		}
		entries = append(entries, scored{index: i, result: r, score: score, matched: matched})
	}

	// Stable sort keeps input (follower-descending) order as the tie-break.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].score > entries[j].score })

	if len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]Stage2Selection, 0, len(entries))
	for rank, e := range entries {
		out = append(out, Stage2Selection{
			CandidateID: e.result.CandidateID,
			Rank:        rank + 1,
			Score:       e.score,
			Rationale:   heuristicRationale(e.matched, e.result),
		})
	}
	return out
}

// topicMatches reports whether campaignTopic matches any candidate topic by
// case-insensitive substring containment in either direction.
func topicMatches(campaignTopic string, candidateTopics []string) bool {
	ct := strings.ToLower(strings.TrimSpace(campaignTopic))
	if ct == "" {
		return false
	}
	for _, t := range candidateTopics {
		lt := strings.ToLower(strings.TrimSpace(t))
		if lt == "" {
			continue
		}
		if strings.Contains(lt, ct) || strings.Contains(ct, lt) {
			return true
		}
	}
	return false
}

// heuristicRationale synthesizes an explainable reason naming the matched
// topics.
func heuristicRationale(matched []string, r *TranscriptResult) string {
	parts := make([]string, 0, 3)
	if len(matched) > 0 {
		parts = append(parts, fmt.Sprintf("matches campaign topics: %s", strings.Join(matched, ", ")))
	} else {
		parts = append(parts, "no direct topic match")
	}
	if r.Followers > 0 {
		parts = append(parts, fmt.Sprintf("%d followers", r.Followers))
	}
	if r.Status == StatusSuccess {
		parts = append(parts, "recent transcript available")
	}
	return "Heuristic ranking: " + strings.Join(parts, "; ")
}
