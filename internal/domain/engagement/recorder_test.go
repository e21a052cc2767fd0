package engagement_test

import (
	"testing"
	"time"

	"github.com/okian/clickprio/internal/domain/engagement"
	"github.com/okian/clickprio/internal/domain/model"
	"github.com/okian/clickprio/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorder(t *testing.T) {
	Convey("Given a recorder with a fixed clock", t, func() {
		now := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
		r := engagement.NewRecorder(engagement.WithClock(model.FixedClock(now)))

		Convey("When recording a click for Admin and User on an empty ledger", func() {
			out := r.Record(model.Ledger{}, model.Viewer{Groups: []string{"Admin", "User"}})

			Convey("Then both groups get one event with the same timestamp", func() {
				So(out, ShouldHaveLength, 2)
				So(out["Admin"], ShouldResemble, []model.Event{{Timestamp: now}})
				So(out["User"], ShouldResemble, []model.Event{{Timestamp: now}})
			})

			Convey("And the Admin only score is 1", func() {
				So(scoring.Aggregate(out, model.Viewer{Groups: []string{"Admin"}}), ShouldEqual, 1)
			})
		})

		Convey("When recording onto an existing ledger", func() {
			earlier := model.Event{Timestamp: now.Add(-time.Hour)}
			in := model.Ledger{"Admin": {earlier}, "Ops": {earlier}}
			out := r.Record(in, model.Viewer{Groups: []string{"Admin"}})

			Convey("Then the event is appended after existing ones", func() {
				So(out["Admin"], ShouldResemble, []model.Event{earlier, {Timestamp: now}})
				So(out["Ops"], ShouldResemble, []model.Event{earlier})
			})

			Convey("And the input ledger is unchanged", func() {
				So(in["Admin"], ShouldHaveLength, 1)
			})
		})

		Convey("When the viewer lists a group twice", func() {
			out := r.Record(nil, model.Viewer{Groups: []string{"Admin", "Admin"}})

			Convey("Then only one event is appended", func() {
				So(out["Admin"], ShouldHaveLength, 1)
			})
		})

		Convey("When the viewer has no groups", func() {
			out := r.Record(model.Ledger{"Admin": {}}, model.Viewer{})

			Convey("Then the ledger is unchanged", func() {
				So(out, ShouldHaveLength, 1)
				So(out["Admin"], ShouldBeEmpty)
			})
		})
	})

	Convey("Given a recorder with a nil clock option", t, func() {
		r := engagement.NewRecorder(engagement.WithClock(nil))
		out := r.Record(nil, model.Viewer{Groups: []string{"Admin"}})
		So(out["Admin"][0].Timestamp.IsZero(), ShouldBeFalse)
	})
}
