package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/clickprio/internal/adapters/http/api"
	"github.com/okian/clickprio/internal/adapters/repository"
	"github.com/okian/clickprio/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDeps struct {
	entries    []types.Entry
	displayErr error

	clickRes    types.ClickResult
	clickErr    error
	lastViewer  string
	lastItem    int64
	lastClickID string

	created   types.ItemInput
	createErr error

	refreshRes types.RefreshResult
	refreshErr error
}

func (m *mockDeps) Display(_ context.Context, viewer string) ([]types.Entry, error) {
	m.lastViewer = viewer
	return m.entries, m.displayErr
}

func (m *mockDeps) Click(_ context.Context, viewer string, itemID int64, clickID string) (types.ClickResult, error) {
	m.lastViewer, m.lastItem, m.lastClickID = viewer, itemID, clickID
	return m.clickRes, m.clickErr
}

func (m *mockDeps) CreateItem(_ context.Context, in types.ItemInput) (types.Entry, error) {
	m.created = in
	if m.createErr != nil {
		return types.Entry{}, m.createErr
	}
	return types.Entry{ID: 7, Title: in.Title, URL: in.URL, Overflow: in.Overflow}, nil
}

func (m *mockDeps) Refresh(context.Context) (types.RefreshResult, error) {
	return m.refreshRes, m.refreshErr
}

type mockStats struct{}

func (mockStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "catalogItems": 3}
}

func newRouter(deps *mockDeps) http.Handler {
	return api.NewServer(deps, mockStats{}).Router()
}

func do(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(rec *httptest.ResponseRecorder) string {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
	return body.Code
}

func TestListItems(t *testing.T) {
	Convey("Given an API with a rendered list", t, func() {
		deps := &mockDeps{entries: []types.Entry{
			{Position: 1, ID: 1, Title: "A", URL: "https://a"},
			{Position: 2, ID: 9, Title: "Other", URL: "https://other", Overflow: true},
		}}
		h := newRouter(deps)

		Convey("When the viewer is passed as a query parameter", func() {
			rec := do(h, http.MethodGet, "/items?viewer=alice", "", nil)

			Convey("Then the list is returned for that viewer", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
				So(deps.lastViewer, ShouldEqual, "alice")

				var body struct {
					Viewer string        `json:"viewer"`
					Items  []types.Entry `json:"items"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body.Viewer, ShouldEqual, "alice")
				So(len(body.Items), ShouldEqual, 2)
				So(body.Items[1].Overflow, ShouldBeTrue)
			})
		})

		Convey("When the viewer is passed as a header", func() {
			rec := do(h, http.MethodGet, "/items", "", map[string]string{api.ViewerHeader: "bob"})

			Convey("Then the header is used", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastViewer, ShouldEqual, "bob")
			})
		})

		Convey("When the service fails", func() {
			deps.displayErr = fmt.Errorf("list: %w", repository.ErrUnavailable)
			rec := do(h, http.MethodGet, "/items?viewer=alice", "", nil)

			Convey("Then 503 is returned with the error shape", func() {
				So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(errorCode(rec), ShouldEqual, "unavailable")
			})
		})
	})
}

func TestClick(t *testing.T) {
	Convey("Given an API accepting clicks", t, func() {
		deps := &mockDeps{clickRes: types.ClickResult{Recorded: true, Score: 2}}
		h := newRouter(deps)

		Convey("When a valid click is posted", func() {
			rec := do(h, http.MethodPost, "/items/42/click", `{"viewer":"alice","click_id":"c-1"}`, nil)

			Convey("Then the service receives the item, viewer and click id", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastItem, ShouldEqual, 42)
				So(deps.lastViewer, ShouldEqual, "alice")
				So(deps.lastClickID, ShouldEqual, "c-1")

				var res types.ClickResult
				So(json.Unmarshal(rec.Body.Bytes(), &res), ShouldBeNil)
				So(res.Recorded, ShouldBeTrue)
				So(res.Score, ShouldEqual, 2)
			})
		})

		Convey("When the body is empty and the viewer is in the header", func() {
			rec := do(h, http.MethodPost, "/items/42/click", "", map[string]string{api.ViewerHeader: "carol"})

			Convey("Then the header viewer is used", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastViewer, ShouldEqual, "carol")
				So(deps.lastClickID, ShouldBeEmpty)
			})
		})

		Convey("When the item id is not a number", func() {
			rec := do(h, http.MethodPost, "/items/abc/click", `{"viewer":"alice"}`, nil)

			Convey("Then 400 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(rec), ShouldEqual, "bad_request")
			})
		})

		Convey("When the body is malformed", func() {
			rec := do(h, http.MethodPost, "/items/42/click", `{"viewer":`, nil)

			Convey("Then 400 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the body has unknown fields", func() {
			rec := do(h, http.MethodPost, "/items/42/click", `{"viewer":"alice","score":99}`, nil)

			Convey("Then 400 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		errCases := []struct {
			name   string
			err    error
			status int
			code   string
		}{
			{"unknown item", repository.ErrNotFound, http.StatusNotFound, "not_found"},
			{"version conflict", repository.ErrConflict, http.StatusConflict, "conflict"},
			{"store outage", repository.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
			{"unexpected failure", errors.New("boom"), http.StatusInternalServerError, "internal"},
		}
		for _, tc := range errCases {
			Convey("When the service reports "+tc.name, func() {
				deps.clickErr = fmt.Errorf("item 42: %w", tc.err)
				rec := do(h, http.MethodPost, "/items/42/click", `{"viewer":"alice"}`, nil)

				Convey("Then it maps to the matching status", func() {
					So(rec.Code, ShouldEqual, tc.status)
					So(errorCode(rec), ShouldEqual, tc.code)
				})
			})
		}
	})
}

func TestCreateItem(t *testing.T) {
	Convey("Given an API accepting new items", t, func() {
		deps := &mockDeps{}
		h := newRouter(deps)

		Convey("When a valid item is posted", func() {
			rec := do(h, http.MethodPost, "/items",
				`{"title":"Wiki","url":"https://wiki","icon":"Book","groups":["Admin","User"]}`, nil)

			Convey("Then 201 is returned and the input is passed through", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				So(deps.created.Title, ShouldEqual, "Wiki")
				So(deps.created.Icon, ShouldEqual, "Book")
				So(deps.created.Groups, ShouldResemble, []string{"Admin", "User"})
			})
		})

		Convey("When the title is missing", func() {
			rec := do(h, http.MethodPost, "/items", `{"url":"https://wiki"}`, nil)

			Convey("Then 400 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(rec.Body.String(), ShouldContainSubstring, "missing title")
			})
		})

		Convey("When the body is empty", func() {
			rec := do(h, http.MethodPost, "/items", "", nil)

			Convey("Then 400 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the store rejects the item", func() {
			deps.createErr = fmt.Errorf("create item: %w", repository.ErrInvalidItem)
			rec := do(h, http.MethodPost, "/items", `{"title":"x","url":"y"}`, nil)

			Convey("Then 400 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestRefreshStatsHealth(t *testing.T) {
	Convey("Given an API", t, func() {
		deps := &mockDeps{refreshRes: types.RefreshResult{RunID: "run-1", Items: 4, Changed: 1}}
		h := newRouter(deps)

		Convey("POST /refresh returns the run summary", func() {
			rec := do(h, http.MethodPost, "/refresh", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)

			var res types.RefreshResult
			So(json.Unmarshal(rec.Body.Bytes(), &res), ShouldBeNil)
			So(res.RunID, ShouldEqual, "run-1")
			So(res.Changed, ShouldEqual, 1)
		})

		Convey("POST /refresh surfaces store outages", func() {
			deps.refreshErr = repository.ErrUnavailable
			rec := do(h, http.MethodPost, "/refresh", "", nil)
			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("GET /stats returns the provider's stats", func() {
			rec := do(h, http.MethodGet, "/stats", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)

			var stats map[string]interface{}
			So(json.Unmarshal(rec.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("GET /healthz serves Prometheus metrics", func() {
			_ = do(h, http.MethodGet, "/items?viewer=alice", "", nil)
			rec := do(h, http.MethodGet, "/healthz", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "clickprio_engine_http_requests_total")
		})

		Convey("Unknown routes use the error shape", func() {
			rec := do(h, http.MethodGet, "/nope", "", nil)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(rec), ShouldEqual, "not_found")
		})

		Convey("Wrong methods are rejected", func() {
			rec := do(h, http.MethodDelete, "/items", "", nil)
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Responses carry a request id through the middleware chain", func() {
			var seen string
			r := api.NewServer(deps, mockStats{}).Router()
			r.Get("/probe", func(w http.ResponseWriter, r *http.Request) {
				seen = middleware.GetReqID(r.Context())
				w.WriteHeader(http.StatusNoContent)
			})
			rec := do(r, http.MethodGet, "/probe", "", nil)
			So(rec.Code, ShouldEqual, http.StatusNoContent)
			So(seen, ShouldNotBeEmpty)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given API error helpers", t, func() {
		cause := errors.New("cause")

		Convey("WrapKind matches both the kind and the cause", func() {
			err := api.WrapKind("op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "op: bad request: cause")
		})

		Convey("NewKind carries only the kind", func() {
			err := api.NewKind("op", api.ErrNotFound)
			So(errors.Is(err, api.ErrNotFound), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "op: not found")
		})
	})
}
