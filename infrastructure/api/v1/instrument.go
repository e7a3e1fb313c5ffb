package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ul-gh/hdscope"
	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/infrastructure/api/jsonapi"
	"github.com/ul-gh/hdscope/infrastructure/api/middleware"
	"github.com/ul-gh/hdscope/infrastructure/api/v1/dto"
)

// InstrumentRouter handles direct instrument control.
type InstrumentRouter struct {
	client *hdscope.Client
	logger *slog.Logger
}

// NewInstrumentRouter creates a new InstrumentRouter.
func NewInstrumentRouter(client *hdscope.Client) *InstrumentRouter {
	return &InstrumentRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for instrument endpoints.
func (r *InstrumentRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.Status)
	router.Post("/run", r.Run)
	router.Post("/stop", r.Stop)
	router.Put("/memory-depth", r.SetMemoryDepth)

	return router
}

// Status handles GET /api/v1/instrument.
func (r *InstrumentRouter) Status(w http.ResponseWriter, req *http.Request) {
	st, err := r.client.Instrument.Status(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	depth := st.MemoryDepth.String()
	if st.AutoDepth {
		depth = "AUTO"
	}
	resource := jsonapi.NewResource(jsonapi.TypeInstrument, st.Identity.Serial, dto.InstrumentAttributes{
		Manufacturer: st.Identity.Manufacturer,
		Model:        st.Identity.Model,
		Serial:       st.Identity.Serial,
		Firmware:     st.Identity.Firmware,
		Running:      st.Running,
		MemoryDepth:  depth,
		Channels:     st.Channels,
		MaxChunk:     st.MaxChunk,
	})
	middleware.WriteDocument(w, http.StatusOK, jsonapi.Single(resource))
}

// Run handles POST /api/v1/instrument/run.
func (r *InstrumentRouter) Run(w http.ResponseWriter, req *http.Request) {
	if err := r.client.Instrument.Run(req.Context()); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stop handles POST /api/v1/instrument/stop.
func (r *InstrumentRouter) Stop(w http.ResponseWriter, req *http.Request) {
	if err := r.client.Instrument.Stop(req.Context()); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetMemoryDepth handles PUT /api/v1/instrument/memory-depth.
func (r *InstrumentRouter) SetMemoryDepth(w http.ResponseWriter, req *http.Request) {
	var body dto.MemoryDepthRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.BadRequest("invalid request body", err), r.logger)
		return
	}

	depth, err := instrument.ParseMemoryDepth(body.Depth)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	if err := r.client.Instrument.SetMemoryDepth(req.Context(), depth); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
