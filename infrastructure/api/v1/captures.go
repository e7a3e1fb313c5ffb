package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ul-gh/hdscope"
	"github.com/ul-gh/hdscope/application/service"
	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/domain/filter"
	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/domain/store"
	"github.com/ul-gh/hdscope/infrastructure/api/jsonapi"
	"github.com/ul-gh/hdscope/infrastructure/api/middleware"
	"github.com/ul-gh/hdscope/infrastructure/api/v1/dto"
	"github.com/ul-gh/hdscope/infrastructure/export"
)

// CapturesRouter handles capture API endpoints.
type CapturesRouter struct {
	client *hdscope.Client
	logger *slog.Logger
}

// NewCapturesRouter creates a new CapturesRouter.
func NewCapturesRouter(client *hdscope.Client) *CapturesRouter {
	return &CapturesRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for capture endpoints.
func (r *CapturesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Post("/", r.Acquire)
	router.Get("/{id}", r.Get)
	router.Delete("/{id}", r.Delete)
	router.Get("/{id}/samples", r.Samples)
	router.Get("/{id}/stats", r.Stats)
	router.Get("/{id}/csv", r.CSV)

	return router
}

// List handles GET /api/v1/captures, newest first. Optional channel,
// since and until parameters narrow the list; times are RFC 3339.
func (r *CapturesRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	filters, err := listFilters(req.URL.Query())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	total, err := r.client.Captures.Count(ctx, filters...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	page := ParsePage(req)
	opts := append(filters, capture.WithNewestFirst(), page.Option())
	captures, err := r.client.Captures.Find(ctx, opts...)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	doc := jsonapi.List(jsonapi.CaptureResources(captures))
	doc.Meta = page.Meta(total)
	doc.Links = page.Links(req, total)
	middleware.WriteDocument(w, http.StatusOK, doc)
}

func listFilters(q url.Values) ([]store.Option, error) {
	var filters []store.Option
	if s := q.Get("channel"); s != "" {
		ch, err := instrument.ParseChannel(s)
		if err != nil {
			return nil, middleware.BadRequest("invalid channel", err)
		}
		filters = append(filters, capture.WithChannel(ch))
	}
	for _, bound := range []struct {
		param string
		opt   func(time.Time) store.Option
	}{
		{"since", capture.WithCapturedAfter},
		{"until", capture.WithCapturedBefore},
	} {
		s := q.Get(bound.param)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, middleware.BadRequest("invalid "+bound.param, err)
		}
		filters = append(filters, bound.opt(t))
	}
	return filters, nil
}

// Acquire handles POST /api/v1/captures.
func (r *CapturesRouter) Acquire(w http.ResponseWriter, req *http.Request) {
	var body dto.CaptureRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.BadRequest("invalid request body", err), r.logger)
		return
	}

	c, err := r.client.Acquisition.Capture(req.Context(), service.CaptureParams{
		Channel: instrument.Channel(body.Channel),
		Samples: body.Samples,
	})
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	w.Header().Set("Location", "/api/v1/captures/"+strconv.FormatInt(c.ID(), 10))
	middleware.WriteDocument(w, http.StatusCreated, jsonapi.Single(jsonapi.CaptureResource(c)))
}

// Get handles GET /api/v1/captures/{id}.
func (r *CapturesRouter) Get(w http.ResponseWriter, req *http.Request) {
	id, err := captureID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	c, err := r.client.Captures.ByID(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteDocument(w, http.StatusOK, jsonapi.Single(jsonapi.CaptureResource(c)))
}

// Delete handles DELETE /api/v1/captures/{id}.
func (r *CapturesRouter) Delete(w http.ResponseWriter, req *http.Request) {
	id, err := captureID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	if err := r.client.Captures.Delete(req.Context(), id); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Samples handles GET /api/v1/captures/{id}/samples.
//
// Query parameters: volts (bool), filters ("downsample:4,moving_average:8"),
// offset and limit on the filtered samples.
func (r *CapturesRouter) Samples(w http.ResponseWriter, req *http.Request) {
	id, err := captureID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	params, err := sampleParams(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	window, err := r.client.Captures.Samples(req.Context(), id, params)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	resource := jsonapi.NewResource(jsonapi.TypeSamples, strconv.FormatInt(id, 10), dto.SamplesAttributes{
		Volts:   params.Volts,
		Filters: params.Filters.String(),
		Offset:  window.Offset,
		Count:   len(window.Values),
		Total:   window.Total,
		Values:  window.Values,
	})
	middleware.WriteDocument(w, http.StatusOK, jsonapi.Single(resource))
}

// Stats handles GET /api/v1/captures/{id}/stats.
func (r *CapturesRouter) Stats(w http.ResponseWriter, req *http.Request) {
	id, err := captureID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	stats, err := r.client.Captures.Stats(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteDocument(w, http.StatusOK, jsonapi.Single(jsonapi.StatsResource(id, stats)))
}

// CSV handles GET /api/v1/captures/{id}/csv with the full record in volts.
func (r *CapturesRouter) CSV(w http.ResponseWriter, req *http.Request) {
	id, err := captureID(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	window, err := r.client.Captures.Samples(req.Context(), id, service.SampleParams{Volts: true})
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=capture-%d.csv", id))
	if err := export.WriteCSV(w, window.Capture.Calibration(), window.Values); err != nil {
		r.logger.Error("csv export failed", slog.Int64("capture_id", id), slog.Any("error", err))
	}
}

func captureID(req *http.Request) (int64, error) {
	s := chi.URLParam(req, "id")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, middleware.BadRequest(fmt.Sprintf("invalid capture id %q", s), nil)
	}
	return id, nil
}

func sampleParams(req *http.Request) (service.SampleParams, error) {
	q := req.URL.Query()
	var params service.SampleParams
	var err error

	if s := q.Get("volts"); s != "" {
		if params.Volts, err = strconv.ParseBool(s); err != nil {
			return params, middleware.BadRequest("invalid volts flag", err)
		}
	}
	if params.Filters, err = filter.ParseChain(q.Get("filters")); err != nil {
		return params, middleware.BadRequest("invalid filters", err)
	}
	if s := q.Get("offset"); s != "" {
		if params.Offset, err = strconv.Atoi(s); err != nil {
			return params, middleware.BadRequest("invalid offset", err)
		}
	}
	if s := q.Get("limit"); s != "" {
		if params.Limit, err = strconv.Atoi(s); err != nil {
			return params, middleware.BadRequest("invalid limit", err)
		}
	}
	return params, nil
}
