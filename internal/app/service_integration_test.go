package service_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/inactives/internal/adapters/provider"
	service "github.com/okian/inactives/internal/app"
	"github.com/okian/inactives/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

// kingdomsStub mimics the external API: a key endpoint and map data that
// differs between the current and the dated snapshot.
func kingdomsStub(keyCalls *atomic.Int32) *httptest.Server {
	const current = `{"response": {"players": [
		{"playerId": "1", "name": "idle", "tribeId": "3", "kingdomId": "9", "villages": [
			{"villageId": "100", "x": "3", "y": "4", "population": "95", "name": "Idle Home", "isMainVillage": "1", "isCity": "0"}
		]},
		{"playerId": "2", "name": "busy", "tribeId": "1", "kingdomId": "0", "villages": [
			{"villageId": "200", "x": "1", "y": "0", "population": "180", "name": "Busy Home", "isMainVillage": "1", "isCity": "0"}
		]}
	]}}`
	const aged = `{"response": {"players": [
		{"playerId": "1", "name": "idle", "tribeId": "3", "kingdomId": "9", "villages": [
			{"villageId": "100", "x": "3", "y": "4", "population": "110", "name": "Idle Home", "isMainVillage": "1", "isCity": "0"}
		]},
		{"playerId": "2", "name": "busy", "tribeId": "1", "kingdomId": "0", "villages": [
			{"villageId": "200", "x": "1", "y": "0", "population": "150", "name": "Busy Home", "isMainVillage": "1", "isCity": "0"}
		]}
	]}}`

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("action") {
		case provider.ActionRequestAPIKey:
			keyCalls.Add(1)
			_, _ = io.WriteString(w, `{"response": {"privateApiKey": "stub-key"}}`)
		case provider.ActionGetMapData:
			if q.Get("privateApiKey") != "stub-key" {
				_, _ = io.WriteString(w, `{"error": true, "message": "bad key"}`)
				return
			}
			if q.Get("date") == "" {
				_, _ = io.WriteString(w, current)
				return
			}
			_, _ = io.WriteString(w, aged)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service wired to the provider client and a stub API", t, func() {
		var keyCalls atomic.Int32
		srv := kingdomsStub(&keyCalls)
		defer srv.Close()

		client := provider.New(
			provider.WithBaseURL(srv.URL+"/%s/api/external.php"),
			provider.WithRateLimit(100),
			provider.WithRetry(provider.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}),
		)
		svc := service.New(service.WithProvider(client), service.WithWorkerCount(2))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When searching for inactives", func() {
			rows, err := svc.FindInactives(ctx, service.Query{
				World:       "com1",
				InactiveFor: 3,
				Criteria:    ranking.DefaultCriteria(),
			})

			Convey("Then only the decaying player should be listed", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
				row := rows[0]
				So(row.VillageID, ShouldEqual, 100)
				So(row.PlayerName, ShouldEqual, "idle")
				So(row.VillageName, ShouldEqual, "Idle Home")
				So(row.TribeID, ShouldEqual, 3)
				So(row.KingdomID, ShouldEqual, 9)
				So(row.IsMainVillage, ShouldBeTrue)
				So(row.Distance, ShouldEqual, 5)
				So(keyCalls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When searching a world with a wrong explicit key", func() {
			_, err := svc.FindInactives(ctx, service.Query{World: "com1", InactiveFor: 3, APIKey: "nope"})

			Convey("Then the provider message should be reported", func() {
				So(service.Kind(err), ShouldEqual, service.KindProvider)
				So(strings.Contains(err.Error(), "bad key"), ShouldBeTrue)
			})
		})

		Convey("When many searches run concurrently", func() {
			const n = 8
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				go func(i int) {
					_, err := svc.FindInactives(ctx, service.Query{
						World:       fmt.Sprintf("com%d", i%2+1),
						InactiveFor: 3,
						Criteria:    ranking.DefaultCriteria(),
					})
					errs <- err
				}(i)
			}

			Convey("Then all of them should succeed", func() {
				for i := 0; i < n; i++ {
					So(<-errs, ShouldBeNil)
				}
				So(svc.GetStats()["requestsServed"], ShouldEqual, int64(n))
			})
		})
	})
}
