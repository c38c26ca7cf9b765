// Package activity decides whether a player kept playing between two snapshots.
package activity

import (
	"context"
	"fmt"

	"github.com/okian/inactives/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

// DecayTolerance is the largest population drop a village may show without
// counting as activity. Walls and residences lose population when their
// upkeep is not paid; anything beyond that was knocked down by someone.
const DecayTolerance = 30

// IsInactive reports whether the villages of pair show no sign of play.
// A changed village count, a village id missing from the aged side, any
// growth, or a drop larger than DecayTolerance all mean the player is active.
func IsInactive(pair model.MatchedPair) bool {
	if len(pair.Recent.Villages) != len(pair.Aged.Villages) {
		return false
	}

	aged := make(map[int64]model.Village, len(pair.Aged.Villages))
	for _, v := range pair.Aged.Villages {
		aged[v.ID] = v
	}

	for _, v := range pair.Recent.Villages {
		if villageShowsActivity(v, aged) {
			return false
		}
	}
	return true
}

// villageShowsActivity evaluates a single recent village against the aged
// villages of the same player.
func villageShowsActivity(recent model.Village, aged map[int64]model.Village) bool {
	old, ok := aged[recent.ID]
	if !ok {
		// moved with a menhir
		return true
	}
	switch {
	case recent.Population > old.Population:
		return true
	case recent.Population < old.Population-DecayTolerance:
		return true
	default:
		return false
	}
}

// Detect classifies every pair and returns the recent side of each inactive
// player, in input order. With workers > 1 the pairs are split into chunks
// classified concurrently.
func Detect(ctx context.Context, pairs []model.MatchedPair, workers int) ([]model.Player, error) {
	inactive := make([]bool, len(pairs))

	if workers <= 1 || len(pairs) < minParallelPairs {
		for i, pair := range pairs {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("activity detect: %w", err)
			}
			inactive[i] = IsInactive(pair)
		}
		return collect(pairs, inactive), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	chunk := (len(pairs) + workers - 1) / workers
	for start := 0; start < len(pairs); start += chunk {
		end := min(start+chunk, len(pairs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				inactive[i] = IsInactive(pairs[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("activity detect: %w", err)
	}
	return collect(pairs, inactive), nil
}

// minParallelPairs keeps small worlds on the sequential path.
const minParallelPairs = 256

func collect(pairs []model.MatchedPair, inactive []bool) []model.Player {
	players := make([]model.Player, 0, len(pairs))
	for i, pair := range pairs {
		if inactive[i] {
			players = append(players, pair.Recent)
		}
	}
	return players
}
