package ranking_test

import (
	"testing"

	"github.com/okian/clickprio/internal/domain/model"
	"github.com/okian/clickprio/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func ids(items []model.Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func scored(id int64, score int, groups ...string) model.ScoredItem {
	return model.ScoredItem{Item: model.Item{ID: id, Groups: groups}, Score: score}
}

func overflow(id int64, groups ...string) model.ScoredItem {
	return model.ScoredItem{Item: model.Item{ID: id, Groups: groups, Overflow: true}}
}

func TestRanker(t *testing.T) {
	admin := model.Viewer{Name: "alice", Groups: []string{"Admin"}}

	Convey("Given a default ranker", t, func() {
		r := ranking.NewRanker()
		So(r.Limit(), ShouldEqual, 11)

		Convey("When items have distinct scores", func() {
			out := r.Rank(admin, []model.ScoredItem{
				scored(1, 1, "Admin"),
				scored(2, 5, "Admin"),
				scored(3, 3, "Admin"),
			})

			Convey("Then they are ordered by score descending", func() {
				So(ids(out), ShouldResemble, []int64{2, 3, 1})
			})
		})

		Convey("When items tie on score", func() {
			out := r.Rank(admin, []model.ScoredItem{
				scored(7, 2, "Admin"),
				scored(3, 4, "Admin"),
				scored(5, 2, "Admin"),
				scored(1, 2, "Admin"),
			})

			Convey("Then tied items keep their input order", func() {
				So(ids(out), ShouldResemble, []int64{3, 7, 5, 1})
			})
		})

		Convey("When some items are not visible", func() {
			out := r.Rank(admin, []model.ScoredItem{
				scored(1, 9, "Finance"),
				scored(2, 1, "Admin", "Finance"),
			})

			Convey("Then hidden items are filtered out", func() {
				So(ids(out), ShouldResemble, []int64{2})
			})
		})

		Convey("When nothing is visible", func() {
			out := r.Rank(admin, []model.ScoredItem{scored(1, 9, "Finance")})

			Convey("Then the result is empty, not nil", func() {
				So(out, ShouldNotBeNil)
				So(out, ShouldBeEmpty)
			})
		})

		Convey("When the overflow item is listed first with a high score", func() {
			of := overflow(99, "Admin")
			of.Score = 100
			out := r.Rank(admin, []model.ScoredItem{of, scored(1, 1, "Admin")})

			Convey("Then it is still pinned last", func() {
				So(ids(out), ShouldResemble, []int64{1, 99})
			})
		})

		Convey("When the overflow item is not visible", func() {
			out := r.Rank(admin, []model.ScoredItem{overflow(99, "Finance"), scored(1, 1, "Admin")})

			Convey("Then it is omitted", func() {
				So(ids(out), ShouldResemble, []int64{1})
			})
		})

		Convey("When the viewer has no groups", func() {
			out := r.Rank(model.Viewer{}, []model.ScoredItem{
				scored(1, 1, "Admin"),
				overflow(99),
			})

			Convey("Then only a universally visible overflow item shows", func() {
				So(ids(out), ShouldResemble, []int64{99})
			})
		})

		Convey("When several overflow items are visible", func() {
			out := r.Rank(admin, []model.ScoredItem{overflow(98, "Admin"), overflow(99, "Admin")})

			Convey("Then only the first one is appended", func() {
				So(ids(out), ShouldResemble, []int64{98})
			})
		})
	})

	Convey("Given a ranker limited to 2 entries", t, func() {
		r := ranking.NewRanker(ranking.WithLimit(2))

		Convey("When 5 ranked items and an overflow item are visible", func() {
			out := r.Rank(admin, []model.ScoredItem{
				scored(1, 1, "Admin"),
				scored(2, 2, "Admin"),
				overflow(99, "Admin", "User"),
				scored(3, 3, "Admin"),
				scored(4, 4, "Admin"),
				scored(5, 5, "Admin"),
			})

			Convey("Then exactly 3 entries are returned with overflow last", func() {
				So(out, ShouldHaveLength, 3)
				So(ids(out), ShouldResemble, []int64{5, 4, 99})
				So(out[2].Overflow, ShouldBeTrue)
			})
		})
	})

	Convey("Given a non-positive limit option", t, func() {
		So(ranking.NewRanker(ranking.WithLimit(0)).Limit(), ShouldEqual, ranking.DefaultLimit)
	})
}
