package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/clickprio/internal/domain/ledger"
	"github.com/okian/clickprio/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDecode(t *testing.T) {
	Convey("Given stored ClickCounts strings", t, func() {
		Convey("When the value is empty", func() {
			l := ledger.Decode("")

			Convey("Then an empty ledger is returned", func() {
				So(l, ShouldNotBeNil)
				So(l, ShouldBeEmpty)
			})
		})

		Convey("When the value is JSON null", func() {
			So(ledger.Decode("null"), ShouldBeEmpty)
		})

		Convey("When the value is malformed", func() {
			l := ledger.Decode(`{"Admin": [`)

			Convey("Then Decode fails soft", func() {
				So(l, ShouldBeEmpty)
			})

			Convey("And DecodeStrict reports ErrDecode", func() {
				_, err := ledger.DecodeStrict(`{"Admin": [`)
				So(errors.Is(err, ledger.ErrDecode), ShouldBeTrue)
			})
		})

		Convey("When the value is a JSON array instead of an object", func() {
			So(ledger.Decode(`[1,2,3]`), ShouldBeEmpty)
		})

		Convey("When a group holds a non-array value", func() {
			l := ledger.Decode(`{"Admin": 3, "User": [{"timestamp": "2025-03-01T10:00:00Z"}]}`)

			Convey("Then only array groups are kept", func() {
				So(l, ShouldHaveLength, 1)
				So(l["User"], ShouldHaveLength, 1)
			})
		})

		Convey("When an event has an unparseable timestamp", func() {
			l := ledger.Decode(`{"Admin": [{"timestamp": "yesterday"}, {"timestamp": "2025-03-01T10:00:00.5+01:00"}]}`)

			Convey("Then the event is kept with a zero time", func() {
				So(l["Admin"], ShouldHaveLength, 2)
				So(l["Admin"][0].Timestamp.IsZero(), ShouldBeTrue)
				So(l["Admin"][1].Timestamp.Equal(time.Date(2025, 3, 1, 9, 0, 0, 500_000_000, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When a group has an empty array", func() {
			l := ledger.Decode(`{"Admin": []}`)

			Convey("Then the group key survives", func() {
				events, ok := l["Admin"]
				So(ok, ShouldBeTrue)
				So(events, ShouldBeEmpty)
			})
		})
	})
}

func TestRoundTrip(t *testing.T) {
	Convey("Given a well-formed ledger", t, func() {
		t0 := time.Date(2025, 3, 1, 10, 0, 0, 123_456_789, time.UTC)
		l := model.Ledger{
			"Admin": {{Timestamp: t0}, {Timestamp: t0.Add(-time.Hour)}, {Timestamp: t0}},
			"User":  {{Timestamp: t0.Add(48 * time.Hour)}},
			"Ops":   {},
		}

		Convey("When encoding and decoding it", func() {
			raw, err := ledger.Encode(l)
			So(err, ShouldBeNil)
			back := ledger.Decode(raw)

			Convey("Then the same groups and events come back in order", func() {
				So(back.Equal(l), ShouldBeTrue)
			})

			Convey("And empty groups are serialized as empty arrays", func() {
				So(raw, ShouldContainSubstring, `"Ops":[]`)
			})
		})

		Convey("When encoding an empty ledger", func() {
			raw, err := ledger.Encode(model.Ledger{})
			So(err, ShouldBeNil)
			So(raw, ShouldEqual, "{}")
		})

		Convey("When encoding the wire format produced elsewhere", func() {
			raw, err := ledger.Encode(model.Ledger{"Admin": {{Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}}})
			So(err, ShouldBeNil)
			So(raw, ShouldEqual, `{"Admin":[{"timestamp":"2025-03-01T10:00:00Z"}]}`)
		})
	})
}
