package scoring_test

import (
	"testing"
	"time"

	"github.com/okian/clickprio/internal/domain/model"
	scoring "github.com/okian/clickprio/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func ev() model.Event {
	return model.Event{Timestamp: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func TestAggregate(t *testing.T) {
	Convey("Given a ledger with three groups", t, func() {
		l := model.Ledger{
			"A": {ev(), ev()},
			"B": {ev()},
			"C": {ev(), ev(), ev()},
		}

		Convey("When the viewer is in A and B", func() {
			score := scoring.Aggregate(l, model.Viewer{Groups: []string{"A", "B"}})

			Convey("Then only A and B count", func() {
				So(score, ShouldEqual, 3)
			})
		})

		Convey("When the viewer lists a group twice", func() {
			score := scoring.Aggregate(l, model.Viewer{Groups: []string{"A", "A"}})

			Convey("Then it is counted once", func() {
				So(score, ShouldEqual, 2)
			})
		})

		Convey("When the viewer's groups are absent from the ledger", func() {
			So(scoring.Aggregate(l, model.Viewer{Groups: []string{"X"}}), ShouldEqual, 0)
		})

		Convey("When the viewer has no groups", func() {
			So(scoring.Aggregate(l, model.Viewer{}), ShouldEqual, 0)
		})

		Convey("When the ledger is nil", func() {
			So(scoring.Aggregate(nil, model.Viewer{Groups: []string{"A"}}), ShouldEqual, 0)
		})
	})
}

func TestScoreAll(t *testing.T) {
	Convey("Given items including an overflow item", t, func() {
		items := []model.Item{
			{ID: 1, Ledger: model.Ledger{"A": {ev()}}},
			{ID: 2, Overflow: true, Ledger: model.Ledger{"A": {ev(), ev()}}},
			{ID: 3, Ledger: model.Ledger{"A": {ev(), ev()}}},
		}

		Convey("When scoring for a viewer in A", func() {
			scored := scoring.ScoreAll(items, model.Viewer{Groups: []string{"A"}})

			Convey("Then order is preserved and overflow is unscored", func() {
				So(scored, ShouldHaveLength, 3)
				So(scored[0].Item.ID, ShouldEqual, 1)
				So(scored[0].Score, ShouldEqual, 1)
				So(scored[1].Score, ShouldEqual, 0)
				So(scored[2].Score, ShouldEqual, 2)
			})
		})
	})
}
