// Package ranking filters inactive players by population and distance and
// orders their villages by distance from a reference point.
package ranking

import (
	"sort"

	"github.com/okian/inactives/internal/domain/model"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Default filter bounds.
const (
	DefaultMinVillagePop = 0
	DefaultMaxVillagePop = 200
	DefaultMinPlayerPop  = 0
	DefaultMaxPlayerPop  = 500
	DefaultMinDistance   = 0
	DefaultMaxDistance   = 100
)

// Criteria bounds the villages that make it into the ranking. All ranges
// are inclusive.
type Criteria struct {
	MinVillagePop int
	MaxVillagePop int
	MinPlayerPop  int
	MaxPlayerPop  int
	RefX          int
	RefY          int
	MinDistance   float64
	MaxDistance   float64
}

// DefaultCriteria returns the bounds used when a caller does not set any.
func DefaultCriteria() Criteria {
	return Criteria{
		MinVillagePop: DefaultMinVillagePop,
		MaxVillagePop: DefaultMaxVillagePop,
		MinPlayerPop:  DefaultMinPlayerPop,
		MaxPlayerPop:  DefaultMaxPlayerPop,
		MinDistance:   DefaultMinDistance,
		MaxDistance:   DefaultMaxDistance,
	}
}

// Rank expands every player whose total population lies within the player
// bounds into one row per village that passes the village population and
// distance bounds. Rows are sorted by ascending distance; ties keep input order.
func Rank(players []model.Player, c Criteria) []model.RankedVillageRow {
	ref := geom.Coord{float64(c.RefX), float64(c.RefY)}
	rows := make([]model.RankedVillageRow, 0)

	for _, p := range ByPlayerPopulation(players, c.MaxPlayerPop) {
		if p.Population() < c.MinPlayerPop {
			continue
		}
		for _, v := range p.Villages {
			if v.Population < c.MinVillagePop || v.Population > c.MaxVillagePop {
				continue
			}
			d := Distance(ref, v)
			if d < c.MinDistance || d > c.MaxDistance {
				continue
			}
			rows = append(rows, project(p, v, d))
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Distance < rows[j].Distance
	})
	return rows
}

// Distance returns the Euclidean distance between ref and the village.
func Distance(ref geom.Coord, v model.Village) float64 {
	return xy.Distance(ref, geom.Coord{float64(v.X), float64(v.Y)})
}

// ByPlayerPopulation keeps the players whose total population is at most maxPop.
func ByPlayerPopulation(players []model.Player, maxPop int) []model.Player {
	matches := make([]model.Player, 0, len(players))
	for _, p := range players {
		if p.Population() <= maxPop {
			matches = append(matches, p)
		}
	}
	return matches
}

func project(p model.Player, v model.Village, distance float64) model.RankedVillageRow {
	return model.RankedVillageRow{
		VillageID:     v.ID,
		X:             v.X,
		Y:             v.Y,
		Population:    v.Population,
		VillageName:   v.Name,
		IsMainVillage: v.IsMainVillage,
		IsCity:        v.IsCity,
		PlayerID:      p.ID,
		PlayerName:    p.Name,
		TribeID:       p.TribeID,
		KingdomID:     p.KingdomID,
		Distance:      distance,
	}
}
