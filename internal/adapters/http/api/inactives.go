package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	service "github.com/okian/inactives/internal/app"
	"github.com/okian/inactives/internal/domain/ranking"
)

// Query parameter names of GET /inactives.
const (
	paramGameworld     = "gameworld"
	paramInactiveFor   = "inactive_for"
	paramMinVillagePop = "min_village_pop"
	paramMaxVillagePop = "max_village_pop"
	paramMinPlayerPop  = "min_player_pop"
	paramMaxPlayerPop  = "max_player_pop"
	paramX             = "x"
	paramY             = "y"
	paramMinDistance   = "min_distance"
	paramMaxDistance   = "max_distance"
	paramAPIKey        = "api_key"
)

// msgNoGameworld is returned when the gameworld parameter is missing.
const msgNoGameworld = "no gameworld provided"

// QueryDefaults holds the values used for omitted query parameters.
type QueryDefaults struct {
	InactiveFor   int
	MinVillagePop int
	MaxVillagePop int
	MinPlayerPop  int
	MaxPlayerPop  int
	MinDistance   float64
	MaxDistance   float64
}

// DefaultQueryDefaults returns the defaults of the public API.
func DefaultQueryDefaults() QueryDefaults {
	c := ranking.DefaultCriteria()
	return QueryDefaults{
		InactiveFor:   5,
		MinVillagePop: c.MinVillagePop,
		MaxVillagePop: c.MaxVillagePop,
		MinPlayerPop:  c.MinPlayerPop,
		MaxPlayerPop:  c.MaxPlayerPop,
		MinDistance:   c.MinDistance,
		MaxDistance:   c.MaxDistance,
	}
}

// InactivesHandler handles inactive searches.
type InactivesHandler struct {
	deps     Dependencies
	defaults QueryDefaults
}

// NewInactivesHandler creates a new inactives handler.
func NewInactivesHandler(deps Dependencies) *InactivesHandler {
	return &InactivesHandler{deps: deps, defaults: DefaultQueryDefaults()}
}

// HandleGetInactives handles GET /inactives requests.
func (h *InactivesHandler) HandleGetInactives(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "")
		return
	}

	q, err := h.parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.deps.FindInactives(r.Context(), q)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeRows(w, rows)
}

// parseQuery reads the search parameters. Empty values fall back to the
// defaults; values that are present must parse.
func (h *InactivesHandler) parseQuery(v url.Values) (service.Query, error) {
	world := strings.TrimSpace(v.Get(paramGameworld))
	if world == "" {
		return service.Query{}, badRequest(msgNoGameworld)
	}

	p := paramParser{values: v}
	d := h.defaults
	q := service.Query{
		World:       world,
		InactiveFor: p.intValue(paramInactiveFor, d.InactiveFor),
		APIKey:      strings.TrimSpace(v.Get(paramAPIKey)),
		Criteria: ranking.Criteria{
			MinVillagePop: p.intValue(paramMinVillagePop, d.MinVillagePop),
			MaxVillagePop: p.intValue(paramMaxVillagePop, d.MaxVillagePop),
			MinPlayerPop:  p.intValue(paramMinPlayerPop, d.MinPlayerPop),
			MaxPlayerPop:  p.intValue(paramMaxPlayerPop, d.MaxPlayerPop),
			RefX:          p.intValue(paramX, 0),
			RefY:          p.intValue(paramY, 0),
			MinDistance:   p.floatValue(paramMinDistance, d.MinDistance),
			MaxDistance:   p.floatValue(paramMaxDistance, d.MaxDistance),
		},
	}
	if p.err != nil {
		return service.Query{}, p.err
	}
	if q.InactiveFor < 1 {
		return service.Query{}, badRequest(fmt.Sprintf("%s must be at least 1", paramInactiveFor))
	}
	return q, nil
}

// paramParser keeps the first parse error so parseQuery can read every
// parameter in one expression.
type paramParser struct {
	values url.Values
	err    error
}

func (p *paramParser) raw(name string) (string, bool) {
	s := strings.TrimSpace(p.values.Get(name))
	return s, s != "" && p.err == nil
}

func (p *paramParser) intValue(name string, def int) int {
	s, ok := p.raw(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.err = badRequest(fmt.Sprintf("invalid %s: %q is not an integer", name, s))
		return def
	}
	return n
}

func (p *paramParser) floatValue(name string, def float64) float64 {
	s, ok := p.raw(name)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = badRequest(fmt.Sprintf("invalid %s: %q is not a number", name, s))
		return def
	}
	return f
}
