// Package matching aligns players of two snapshots of the same world.
package matching

import "github.com/okian/inactives/internal/domain/model"

// Match pairs every player present in both recent and aged by player id.
// Players missing from either side are dropped. The output follows the order
// of recent; a player id repeated in either input yields a single pair built
// from the first occurrence on each side.
func Match(recent, aged []model.Player) []model.MatchedPair {
	if len(recent) == 0 || len(aged) == 0 {
		return []model.MatchedPair{}
	}

	byID := make(map[int64]model.Player, len(aged))
	for _, p := range aged {
		if _, dup := byID[p.ID]; !dup {
			byID[p.ID] = p
		}
	}

	pairs := make([]model.MatchedPair, 0, min(len(recent), len(byID)))
	paired := make(map[int64]struct{}, cap(pairs))
	for _, p := range recent {
		old, ok := byID[p.ID]
		if !ok {
			continue
		}
		if _, done := paired[p.ID]; done {
			continue
		}
		paired[p.ID] = struct{}{}
		pairs = append(pairs, model.MatchedPair{Recent: p, Aged: old})
	}
	return pairs
}
