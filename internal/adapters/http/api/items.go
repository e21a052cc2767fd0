package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/clickprio/internal/domain/types"
)

// ItemsHandler serves the display list, item creation and clicks.
type ItemsHandler struct {
	deps Dependencies
}

// NewItemsHandler creates a new items handler.
func NewItemsHandler(deps Dependencies) *ItemsHandler {
	return &ItemsHandler{deps: deps}
}

type listResponse struct {
	Viewer string        `json:"viewer"`
	Items  []types.Entry `json:"items"`
}

// HandleList handles GET /items?viewer=<name>.
func (h *ItemsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_items"
	viewer := viewerFrom(r)
	entries, err := h.deps.Display(r.Context(), viewer)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Viewer: viewer, Items: entries})
}

// createRequest mirrors the body of POST /items.
type createRequest struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Icon     string   `json:"icon"`
	Groups   []string `json:"groups"`
	Overflow bool     `json:"overflow"`
}

func (c createRequest) validate() error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return errors.New("missing title")
	case strings.TrimSpace(c.URL) == "":
		return errors.New("missing url")
	}
	return nil
}

// HandleCreate handles POST /items.
func (h *ItemsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_item"
	var req createRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	entry, err := h.deps.CreateItem(r.Context(), types.ItemInput(req))
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// clickRequest mirrors the body of POST /items/{id}/click.
type clickRequest struct {
	Viewer  string `json:"viewer"`
	ClickID string `json:"click_id"`
}

// HandleClick handles POST /items/{id}/click.
func (h *ItemsHandler) HandleClick(w http.ResponseWriter, r *http.Request) {
	const op = "api.click"
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request",
			NewKind(op, fmt.Errorf("%w: invalid item id", ErrBadRequest)))
		return
	}
	var req clickRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	viewer := strings.TrimSpace(req.Viewer)
	if viewer == "" {
		viewer = viewerFrom(r)
	}

	res, err := h.deps.Click(r.Context(), viewer, id, strings.TrimSpace(req.ClickID))
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeBody decodes a JSON body into v. An empty body is accepted only when
// optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
