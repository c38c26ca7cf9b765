// Package model contains domain models passed between layers.
package model

import "time"

// Village is a single settlement as seen in one map snapshot.
type Village struct {
	ID            int64  // unique within a world
	PlayerID      int64  // owning player
	X             int    // map x coordinate
	Y             int    // map y coordinate
	Population    int    // non-negative development proxy
	Name          string // display name
	IsMainVillage bool   // capital flag
	IsCity        bool   // city flag
}

// Player is an account together with the villages it owned at capture time.
type Player struct {
	ID        int64
	Name      string
	TribeID   int
	KingdomID int64
	Villages  []Village
}

// Population returns the summed population of all villages of p.
func (p Player) Population() int {
	total := 0
	for _, v := range p.Villages {
		total += v.Population
	}
	return total
}

// Snapshot is the public map state of one world at one point in time.
// Snapshots are never mutated after construction.
type Snapshot struct {
	World      string
	CapturedAt time.Time
	Players    []Player
}

// MatchedPair holds the same player drawn from a recent and an aged snapshot.
// Recent.ID always equals Aged.ID.
type MatchedPair struct {
	Recent Player
	Aged   Player
}

// RankedVillageRow is one village of an inactive player together with its
// distance from the reference point. Field names mirror the public wire format.
type RankedVillageRow struct {
	VillageID     int64   `json:"villageId"`
	X             int     `json:"x"`
	Y             int     `json:"y"`
	Population    int     `json:"population"`
	VillageName   string  `json:"village_name"`
	IsMainVillage bool    `json:"isMainVillage"`
	IsCity        bool    `json:"isCity"`
	PlayerID      int64   `json:"playerId"`
	PlayerName    string  `json:"player_name"`
	TribeID       int     `json:"tribeId"`
	KingdomID     int64   `json:"kingdomId"`
	Distance      float64 `json:"distance"`
}
