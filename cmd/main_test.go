package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/inactives/internal/adapters/provider"
	"github.com/okian/inactives/internal/config"
	"github.com/okian/inactives/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithWriter(io.Discard)
	os.Exit(m.Run())
}

// gameAPIStub answers key requests and serves one idle player whose village
// lost 5 population between the snapshots.
func gameAPIStub() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("action") {
		case provider.ActionRequestAPIKey:
			_, _ = io.WriteString(w, `{"response": {"privateApiKey": "k"}}`)
		case provider.ActionGetMapData:
			pop := "120"
			if q.Get("date") != "" {
				pop = "125"
			}
			_, _ = io.WriteString(w, `{"response": {"players": [
				{"playerId": "7", "name": "sleeper", "tribeId": "2", "kingdomId": "0", "villages": [
					{"villageId": "700", "x": "6", "y": "8", "population": "`+pop+`", "name": "Quiet", "isMainVillage": "1", "isCity": "0"}
				]}
			]}}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func setEnv(kv map[string]string) func() {
	for k, v := range kv {
		_ = os.Setenv(k, v)
	}
	return func() {
		for k := range kv {
			_ = os.Unsetenv(k)
		}
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When loading configuration from the environment", func() {
			restore := setEnv(map[string]string{
				"INACTIVES_ADDR":                    ":8080",
				"INACTIVES_CLASSIFY_WORKERS":        "4",
				"INACTIVES_DEFAULT_MAX_VILLAGE_POP": "300",
			})
			defer restore()

			cfg, err := config.Load(context.Background())

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.ClassifyWorkers, convey.ShouldEqual, 4)

			convey.Convey("Then query defaults follow the configuration", func() {
				d := queryDefaults(cfg)
				convey.So(d.MaxVillagePop, convey.ShouldEqual, 300)
				convey.So(d.InactiveFor, convey.ShouldEqual, cfg.DefaultInactiveFor)
				convey.So(d.MaxDistance, convey.ShouldEqual, cfg.DefaultMaxDistance)
				convey.So(d.MinDistance, convey.ShouldEqual, 0.0)
			})
		})

		convey.Convey("When the service runs against a stub game API", func() {
			stub := gameAPIStub()
			defer stub.Close()

			restore := setEnv(map[string]string{
				"INACTIVES_PROVIDER_BASE_URL":     stub.URL + "/%s/api/external.php",
				"INACTIVES_PROVIDER_MAX_ATTEMPTS": "1",
			})
			defer restore()

			ctx := context.Background()
			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)

			svc := newService(cfg, logger.Get())
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			handler := newHandler(ctx, cfg, svc)

			convey.Convey("Then /inactives lists the idle village", func() {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inactives?gameworld=com1&x=0&y=0", nil))

				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Header().Get("X-Request-ID"), convey.ShouldNotBeEmpty)

				var env struct {
					Error bool `json:"error"`
					Data  []struct {
						VillageID int64   `json:"villageId"`
						Distance  float64 `json:"distance"`
					} `json:"data"`
				}
				convey.So(json.Unmarshal(rec.Body.Bytes(), &env), convey.ShouldBeNil)
				convey.So(env.Error, convey.ShouldBeFalse)
				convey.So(len(env.Data), convey.ShouldEqual, 1)
				convey.So(env.Data[0].VillageID, convey.ShouldEqual, int64(700))
				convey.So(env.Data[0].Distance, convey.ShouldEqual, 10.0)
			})

			convey.Convey("Then a missing gameworld is rejected", func() {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inactives", nil))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
			})

			convey.Convey("Then the docs and stats routes are served", func() {
				for _, path := range []string{"/api-docs", "/openapi.yaml", "/stats", "/healthz"} {
					rec := httptest.NewRecorder()
					handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
					convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				}
			})

			convey.Convey("Then cross-origin callers are allowed", func() {
				req := httptest.NewRequest(http.MethodGet, "/stats", nil)
				req.Header.Set("Origin", "https://example.org")
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				convey.So(rec.Header().Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "*")
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given the background metrics updater", t, func() {
		convey.Convey("Then it returns once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
