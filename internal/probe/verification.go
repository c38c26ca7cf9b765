package probe

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/okian/inactives/internal/domain/model"
	"github.com/okian/inactives/internal/domain/ranking"
	"github.com/twpayne/go-geom"
)

// ErrContract marks a response that breaks the API contract.
var ErrContract = errors.New("contract violation")

// distanceEpsilon absorbs float formatting in the JSON round trip.
const distanceEpsilon = 1e-9

// verifyResult checks one search response and returns every violation
// joined into a single error.
func verifyResult(cfg *Config, sentID string, res searchResult) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrContract}, args...)...))
	}

	if sentID != "" && res.requestID != sentID {
		fail("request id %q echoed as %q", sentID, res.requestID)
	}

	env := res.envelope
	if res.status != http.StatusOK {
		if !env.Error {
			fail("status %d without error flag", res.status)
		}
		if env.Message == "" {
			fail("status %d without message", res.status)
		}
		if len(env.Data) != 0 {
			fail("status %d carries %d rows", res.status, len(env.Data))
		}
		return errors.Join(errs...)
	}

	if env.Error {
		fail("status 200 with error flag: %s", env.Message)
	}
	if env.Data == nil {
		fail("data is null")
	}

	ref := geom.Coord{float64(cfg.X), float64(cfg.Y)}
	seen := make(map[int64]struct{}, len(env.Data))
	for i, row := range env.Data {
		if _, dup := seen[row.VillageID]; dup {
			fail("village %d listed twice", row.VillageID)
		}
		seen[row.VillageID] = struct{}{}

		if i > 0 && row.Distance < env.Data[i-1].Distance {
			fail("row %d at distance %.4f sorts after %.4f", i, row.Distance, env.Data[i-1].Distance)
		}
		if row.Distance < cfg.MinDistance || row.Distance > cfg.MaxDistance {
			fail("village %d at distance %.4f is outside [%g, %g]", row.VillageID, row.Distance, cfg.MinDistance, cfg.MaxDistance)
		}
		want := ranking.Distance(ref, model.Village{ID: row.VillageID, X: row.X, Y: row.Y})
		if math.Abs(want-row.Distance) > distanceEpsilon {
			fail("village %d reports distance %.4f, expected %.4f", row.VillageID, row.Distance, want)
		}
	}
	return errors.Join(errs...)
}

// distinctPlayers counts the players behind rows.
func distinctPlayers(env Envelope) int {
	ids := make(map[int64]struct{}, len(env.Data))
	for _, row := range env.Data {
		ids[row.PlayerID] = struct{}{}
	}
	return len(ids)
}
