package teamchat

import "sort"

// Reconcile merges REST-loaded history with live-streamed messages into
// one list for rendering: first occurrence of each id wins (a message
// present in both history and a live echo appears once), then the
// result is ordered by CreatedAt ascending. The sort is stable, so
// equal timestamps keep their merge order.
//
// Pure function of its inputs; neither slice is mutated. Cheap enough
// to re-run whenever either source changes.
func Reconcile(history, live []ChatMessage) []ChatMessage {
	merged := make([]ChatMessage, 0, len(history)+len(live))
	seen := make(map[string]struct{}, len(history)+len(live))
	for _, src := range [][]ChatMessage{history, live} {
		for _, msg := range src {
			if _, dup := seen[msg.ID]; dup {
				continue
			}
			seen[msg.ID] = struct{}{}
			merged = append(merged, msg)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt < merged[j].CreatedAt
	})
	return merged
}
