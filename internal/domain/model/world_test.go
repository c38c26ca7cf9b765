package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	model "github.com/okian/inactives/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPlayerPopulation(t *testing.T) {
	convey.Convey("Given a player", t, func() {
		convey.Convey("When the player owns several villages", func() {
			p := model.Player{ID: 7, Villages: []model.Village{
				{ID: 1, Population: 120},
				{ID: 2, Population: 80},
				{ID: 3, Population: 0},
			}}

			convey.Convey("Then population is the sum of village populations", func() {
				convey.So(p.Population(), convey.ShouldEqual, 200)
			})
		})

		convey.Convey("When the player owns no villages", func() {
			p := model.Player{ID: 8}

			convey.Convey("Then population is zero", func() {
				convey.So(p.Population(), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestRankedVillageRowJSON(t *testing.T) {
	convey.Convey("Given a ranked village row", t, func() {
		row := model.RankedVillageRow{
			VillageID:     536887296,
			X:             3,
			Y:             4,
			Population:    150,
			VillageName:   "Hamlet",
			IsMainVillage: true,
			PlayerID:      42,
			PlayerName:    "ghost",
			TribeID:       2,
			KingdomID:     9,
			Distance:      5,
		}

		convey.Convey("When encoding it as JSON", func() {
			raw, err := json.Marshal(row)
			convey.So(err, convey.ShouldBeNil)

			var fields map[string]interface{}
			convey.So(json.Unmarshal(raw, &fields), convey.ShouldBeNil)

			convey.Convey("Then it uses the public field names", func() {
				for _, key := range []string{
					"villageId", "x", "y", "population", "village_name", "isMainVillage",
					"isCity", "playerId", "player_name", "tribeId", "kingdomId", "distance",
				} {
					convey.So(fields, convey.ShouldContainKey, key)
				}
				convey.So(fields["village_name"], convey.ShouldEqual, "Hamlet")
				convey.So(fields["distance"], convey.ShouldEqual, 5.0)
			})
		})
	})
}

func TestRecordError(t *testing.T) {
	convey.Convey("Given a record error", t, func() {
		err := &model.RecordError{World: "com1", PlayerID: 42, VillageID: 1001, Field: "population", Value: "abc"}

		convey.Convey("Then it matches the malformed record sentinel", func() {
			convey.So(errors.Is(err, model.ErrMalformedRecord), convey.ShouldBeTrue)
		})

		convey.Convey("And the message identifies the record", func() {
			msg := err.Error()
			convey.So(msg, convey.ShouldContainSubstring, "world com1")
			convey.So(msg, convey.ShouldContainSubstring, "player 42")
			convey.So(msg, convey.ShouldContainSubstring, "village 1001")
			convey.So(msg, convey.ShouldContainSubstring, `"population"`)
			convey.So(msg, convey.ShouldContainSubstring, `"abc"`)
		})

		convey.Convey("When ids are unknown", func() {
			err := &model.RecordError{Field: "playerId", Value: ""}

			convey.Convey("Then they are left out of the message", func() {
				convey.So(err.Error(), convey.ShouldNotContainSubstring, "player 0")
				convey.So(err.Error(), convey.ShouldNotContainSubstring, "village 0")
			})
		})
	})
}
