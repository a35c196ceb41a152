package types_test

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/smfc/matchday/internal/domain/model"
	types "github.com/smfc/matchday/internal/domain/types"
)

func TestRank(t *testing.T) {
	Convey("Given a sorted leaderboard", t, func() {
		rows := []model.LeaderboardEntry{
			{Name: "eve", Total: 7, Played: 1},
			{Name: "fin", Total: 5, Played: 3},
		}

		entries := types.Rank(rows)

		Convey("Then ranks start at one and follow the input order", func() {
			So(entries, ShouldHaveLength, 2)
			So(entries[0].Rank, ShouldEqual, 1)
			So(entries[0].Name, ShouldEqual, "eve")
			So(entries[1].Rank, ShouldEqual, 2)
			So(entries[1].Total, ShouldEqual, 5)
		})

		Convey("Then the JSON row is flat", func() {
			raw, err := json.Marshal(entries[0])
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `{"rank":1,"name":"eve","total_points":7,"win_points":0,"red_points":0,"blue_points":0,"played":1}`)
		})
	})

	Convey("Given an empty leaderboard", t, func() {
		So(types.Rank(nil), ShouldBeEmpty)
	})
}
