package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/okian/clickprio/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func decodeLines(buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal(line, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func TestLogger(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(logger.InitWithWriter(&buf), ShouldBeNil)
		So(logger.SetLevelString("info"), ShouldBeNil)
		defer func() { _ = logger.Init() }()

		Convey("When logging at info with fields", func() {
			logger.Get().Named("ranking").Info(context.Background(), "ranked",
				logger.Int("items", 3),
				logger.String("viewer", "alice"),
				logger.Error(errors.New("boom")),
			)

			Convey("Then a JSON line with all fields is written", func() {
				lines := decodeLines(&buf)
				So(lines, ShouldHaveLength, 1)
				So(lines[0]["msg"], ShouldEqual, "ranked")
				So(lines[0]["logger"], ShouldEqual, "ranking")
				So(lines[0]["items"], ShouldEqual, 3.0)
				So(lines[0]["viewer"], ShouldEqual, "alice")
				So(lines[0]["error"], ShouldEqual, "boom")
			})
		})

		Convey("When logging below the configured level", func() {
			logger.Get().Debug(context.Background(), "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the context carries a request id", func() {
			ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
			logger.Get().Warn(ctx, "slow store")

			Convey("Then the request id is attached", func() {
				lines := decodeLines(&buf)
				So(lines, ShouldHaveLength, 1)
				So(lines[0]["request_id"], ShouldEqual, "req-1")
			})
		})

		Convey("When setting an unknown level", func() {
			err := logger.SetLevelString("loud")

			Convey("Then ErrInvalidLevel is returned", func() {
				So(errors.Is(err, logger.ErrInvalidLevel), ShouldBeTrue)
			})
		})
	})
}
