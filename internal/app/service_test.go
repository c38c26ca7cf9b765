package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/inactives/internal/adapters/provider"
	service "github.com/okian/inactives/internal/app"
	"github.com/okian/inactives/internal/domain/model"
	"github.com/okian/inactives/internal/domain/ranking"
	"github.com/okian/inactives/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
}

// fakeProvider serves fixed snapshots: current when date is nil, aged otherwise.
type fakeProvider struct {
	mu         sync.Mutex
	current    []model.Player
	aged       []model.Player
	fetchErr   error
	keyErr     error
	keyCalls   int
	dates      []time.Time
	keysUsed   []string
	keyToIssue string
}

func (f *fakeProvider) FetchSnapshot(_ context.Context, world, apiKey string, date *time.Time) (model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keysUsed = append(f.keysUsed, apiKey)
	if f.fetchErr != nil {
		return model.Snapshot{}, f.fetchErr
	}
	if date == nil {
		return model.Snapshot{World: world, Players: f.current}, nil
	}
	f.dates = append(f.dates, *date)
	return model.Snapshot{World: world, CapturedAt: *date, Players: f.aged}, nil
}

func (f *fakeProvider) ObtainAPIKey(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyCalls++
	if f.keyErr != nil {
		return "", f.keyErr
	}
	if f.keyToIssue == "" {
		return "issued", nil
	}
	return f.keyToIssue, nil
}

func village(id int64, x, y, pop int) model.Village {
	return model.Village{ID: id, X: x, Y: y, Population: pop, Name: fmt.Sprintf("v%d", id)}
}

func player(id int64, villages ...model.Village) model.Player {
	for i := range villages {
		villages[i].PlayerID = id
	}
	return model.Player{ID: id, Name: fmt.Sprintf("p%d", id), Villages: villages}
}

// world returns a provider where player 1 is idle, player 2 grew, player 3
// only decayed within tolerance and player 4 is new.
func world() *fakeProvider {
	return &fakeProvider{
		current: []model.Player{
			player(1, village(10, 3, 4, 100)),
			player(2, village(20, 1, 1, 150)),
			player(3, village(30, 6, 8, 100), village(31, 0, 1, 40)),
			player(4, village(40, 0, 0, 10)),
		},
		aged: []model.Player{
			player(1, village(10, 3, 4, 100)),
			player(2, village(20, 1, 1, 120)),
			player(3, village(30, 6, 8, 130), village(31, 0, 1, 40)),
		},
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service without a provider", t, func() {
		svc := service.New()

		Convey("Then starting it should fail", func() {
			So(errors.Is(svc.Start(context.Background()), service.ErrNoProvider), ShouldBeTrue)
		})

		Convey("Then searches should fail", func() {
			_, err := svc.ComputeInactives(context.Background(), "com1", 5, "")
			So(errors.Is(err, service.ErrNoProvider), ShouldBeTrue)
		})
	})

	Convey("Given a new service with a provider", t, func() {
		svc := service.New(service.WithProvider(world()), service.WithWorkerCount(3))
		defer svc.Stop()

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then it should report started in stats", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 3)
			})

			Convey("Then starting twice should be a no-op", func() {
				So(svc.Start(context.Background()), ShouldBeNil)
			})
		})
	})
}

func TestService_ComputeInactives(t *testing.T) {
	Convey("Given a service over a small world", t, func() {
		now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
		fp := world()
		svc := service.New(service.WithProvider(fp), service.WithClock(func() time.Time { return now }))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When computing inactives for five days", func() {
			players, err := svc.ComputeInactives(context.Background(), "com1", 5, "")

			Convey("Then idle and decaying players should be inactive", func() {
				So(err, ShouldBeNil)
				So(players, ShouldHaveLength, 2)
				So(players[0].ID, ShouldEqual, 1)
				So(players[1].ID, ShouldEqual, 3)
			})

			Convey("Then the recent side of each player should be returned", func() {
				So(players[1].Villages[0].Population, ShouldEqual, 100)
			})

			Convey("Then the aged snapshot should be dated five days back", func() {
				So(fp.dates, ShouldHaveLength, 1)
				So(fp.dates[0].Equal(now.AddDate(0, 0, -5)), ShouldBeTrue)
			})

			Convey("Then an API key should have been obtained once", func() {
				So(fp.keyCalls, ShouldEqual, 1)
				So(fp.keysUsed, ShouldResemble, []string{"issued", "issued"})
			})
		})

		Convey("When two searches run without a key", func() {
			_, err1 := svc.ComputeInactives(context.Background(), "com1", 5, "")
			_, err2 := svc.ComputeInactives(context.Background(), "com1", 5, "")

			Convey("Then each search should obtain its own key", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(fp.keyCalls, ShouldEqual, 2)
				So(svc.GetStats()["keysObtained"], ShouldEqual, int64(2))
			})
		})

		Convey("When a key is supplied", func() {
			_, err := svc.ComputeInactives(context.Background(), "com1", 5, "mine")

			Convey("Then no key should be requested", func() {
				So(err, ShouldBeNil)
				So(fp.keyCalls, ShouldEqual, 0)
				So(fp.keysUsed, ShouldResemble, []string{"mine", "mine"})
			})
		})

		Convey("When the world is missing", func() {
			_, err := svc.ComputeInactives(context.Background(), "", 5, "")

			Convey("Then an invalid query error should be returned", func() {
				So(errors.Is(err, service.ErrInvalidQuery), ShouldBeTrue)
				So(service.Kind(err), ShouldEqual, service.KindInvalidQuery)
			})
		})

		Convey("When inactive_for is not positive", func() {
			_, err := svc.ComputeInactives(context.Background(), "com1", 0, "")

			Convey("Then an invalid query error should be returned", func() {
				So(errors.Is(err, service.ErrInvalidQuery), ShouldBeTrue)
			})
		})
	})

	Convey("Given a provider that fails", t, func() {
		fp := world()
		fp.fetchErr = &provider.Error{World: "com1", Action: provider.ActionGetMapData, Reason: "API did not return MapData"}
		svc := service.New(service.WithProvider(fp))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		_, err := svc.ComputeInactives(context.Background(), "com1", 5, "")

		Convey("Then the provider failure should surface", func() {
			So(errors.Is(err, provider.ErrProviderFailure), ShouldBeTrue)
			So(service.Kind(err), ShouldEqual, service.KindProvider)
			So(err.Error(), ShouldContainSubstring, "API did not return MapData")
		})
	})

	Convey("Given a provider that sends a malformed record", t, func() {
		fp := world()
		fp.fetchErr = &model.RecordError{World: "com1", PlayerID: 1, Field: "population", Value: `"x"`}
		svc := service.New(service.WithProvider(fp))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		_, err := svc.ComputeInactives(context.Background(), "com1", 5, "k")

		Convey("Then the malformed record error should surface", func() {
			So(errors.Is(err, model.ErrMalformedRecord), ShouldBeTrue)
			So(service.Kind(err), ShouldEqual, service.KindMalformed)
		})
	})

	Convey("Given a provider that cannot issue keys", t, func() {
		fp := world()
		fp.keyErr = &provider.Error{World: "com1", Action: provider.ActionRequestAPIKey, Reason: "API did not return a privateApiKey"}
		svc := service.New(service.WithProvider(fp))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		_, err := svc.ComputeInactives(context.Background(), "com1", 5, "")

		Convey("Then no snapshot should be fetched", func() {
			So(errors.Is(err, provider.ErrProviderFailure), ShouldBeTrue)
			So(fp.keysUsed, ShouldBeEmpty)
		})
	})
}

func TestService_FindInactives(t *testing.T) {
	Convey("Given a service over a small world", t, func() {
		svc := service.New(service.WithProvider(world()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When searching with default criteria around the origin", func() {
			rows, err := svc.FindInactives(context.Background(), service.Query{
				World:       "com1",
				InactiveFor: 5,
				Criteria:    ranking.DefaultCriteria(),
			})

			Convey("Then villages of inactive players should be ranked by distance", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 3)
				So(rows[0].VillageID, ShouldEqual, 31)
				So(rows[0].Distance, ShouldEqual, 1)
				So(rows[1].VillageID, ShouldEqual, 10)
				So(rows[1].Distance, ShouldEqual, 5)
				So(rows[2].VillageID, ShouldEqual, 30)
				So(rows[2].Distance, ShouldEqual, 10)
			})

			Convey("Then the stats should count the search", func() {
				stats := svc.GetStats()
				So(stats["requestsServed"], ShouldEqual, int64(1))
				So(stats["lastRows"], ShouldEqual, int64(3))
			})
		})

		Convey("When the distance range excludes everything", func() {
			c := ranking.DefaultCriteria()
			c.MinDistance = 50
			rows, err := svc.FindInactives(context.Background(), service.Query{World: "com1", InactiveFor: 5, Criteria: c})

			Convey("Then an empty, non-nil result should be returned", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldNotBeNil)
				So(rows, ShouldBeEmpty)
			})
		})

		Convey("When a search fails", func() {
			_, err := svc.FindInactives(context.Background(), service.Query{InactiveFor: 5})

			Convey("Then the failure should be counted", func() {
				So(err, ShouldNotBeNil)
				So(svc.GetStats()["requestsFailed"], ShouldEqual, int64(1))
			})
		})
	})
}

func TestKind(t *testing.T) {
	Convey("Given errors of every kind", t, func() {
		Convey("Then each should be classified", func() {
			So(service.Kind(nil), ShouldEqual, "")
			So(service.Kind(fmt.Errorf("wrap: %w", service.ErrInvalidQuery)), ShouldEqual, service.KindInvalidQuery)
			So(service.Kind(&provider.Error{Reason: "x"}), ShouldEqual, service.KindProvider)
			So(service.Kind(&model.RecordError{Field: "x"}), ShouldEqual, service.KindMalformed)
			So(service.Kind(&provider.Error{Reason: "x", Err: context.DeadlineExceeded}), ShouldEqual, service.KindTimeout)
			So(service.Kind(context.Canceled), ShouldEqual, service.KindCanceled)
			So(service.Kind(errors.New("boom")), ShouldEqual, service.KindInternal)
		})
	})
}
