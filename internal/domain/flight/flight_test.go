package flight_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	flight "github.com/devquest-io/analytics/internal/domain/flight"
	model "github.com/devquest-io/analytics/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryGroup(t *testing.T) {
	Convey("Given a new in-flight group", t, func() {
		g := flight.NewInMemoryGroup()
		ctx := context.Background()

		Convey("When a single caller runs a fetch", func() {
			rec, owner, err := g.Do(ctx, "alice", func() (model.ActivityRecord, error) {
				return model.ActivityRecord{User: "alice", TotalSolved: 7}, nil
			})

			Convey("Then it should own the fetch and get the result", func() {
				So(err, ShouldBeNil)
				So(owner, ShouldBeTrue)
				So(rec.TotalSolved, ShouldEqual, 7)
				So(g.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the fetch fails", func() {
			boom := errors.New("boom")
			_, owner, err := g.Do(ctx, "alice", func() (model.ActivityRecord, error) {
				return model.ActivityRecord{}, boom
			})

			Convey("Then the error should surface and the entry should be gone", func() {
				So(owner, ShouldBeTrue)
				So(errors.Is(err, boom), ShouldBeTrue)
				So(g.Size(), ShouldEqual, 0)
			})
		})

		Convey("When completed fetches are followed by a new call", func() {
			calls := 0
			fn := func() (model.ActivityRecord, error) {
				calls++
				return model.ActivityRecord{User: "alice"}, nil
			}

			_, _, _ = g.Do(ctx, "alice", fn)
			_, owner, _ := g.Do(ctx, "alice", fn)

			Convey("Then no stale coalescing should occur across completed tasks", func() {
				So(calls, ShouldEqual, 2)
				So(owner, ShouldBeTrue)
			})
		})
	})
}

func TestInMemoryGroup_SingleFlight(t *testing.T) {
	Convey("Given many concurrent callers for the same key", t, func() {
		g := flight.NewInMemoryGroup()
		ctx := context.Background()

		var fetches atomic.Int64
		release := make(chan struct{})
		started := make(chan struct{})

		fn := func() (model.ActivityRecord, error) {
			fetches.Add(1)
			close(started)
			<-release
			return model.ActivityRecord{User: "alice", TotalSolved: 3}, nil
		}

		const callers = 32
		var wg sync.WaitGroup
		var owners atomic.Int64
		results := make([]model.ActivityRecord, callers)
		errs := make([]error, callers)

		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, owner, err := g.Do(ctx, "alice", fn)
			if owner {
				owners.Add(1)
			}
			results[0], errs[0] = rec, err
		}()
		<-started

		for i := 1; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec, owner, err := g.Do(ctx, "alice", fn)
				if owner {
					owners.Add(1)
				}
				results[i], errs[i] = rec, err
			}(i)
		}

		// Give the waiters a moment to attach, then let the owner finish.
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		Convey("Then exactly one fetch should have run", func() {
			So(fetches.Load(), ShouldEqual, 1)
			So(owners.Load(), ShouldEqual, 1)
		})

		Convey("Then every caller should observe the same result", func() {
			for i := 0; i < callers; i++ {
				So(errs[i], ShouldBeNil)
				So(results[i].TotalSolved, ShouldEqual, 3)
			}
		})

		Convey("Then the in-flight set should be empty afterwards", func() {
			So(g.Size(), ShouldEqual, 0)
		})
	})
}

func TestInMemoryGroup_AbandonedWaiter(t *testing.T) {
	Convey("Given a waiter that abandons its wait", t, func() {
		g := flight.NewInMemoryGroup()

		release := make(chan struct{})
		started := make(chan struct{})
		ownerDone := make(chan error, 1)

		go func() {
			_, _, err := g.Do(context.Background(), "alice", func() (model.ActivityRecord, error) {
				close(started)
				<-release
				return model.ActivityRecord{User: "alice"}, nil
			})
			ownerDone <- err
		}()
		<-started

		waiterCtx, cancel := context.WithCancel(context.Background())
		waiterErr := make(chan error, 1)
		go func() {
			_, _, err := g.Do(waiterCtx, "alice", func() (model.ActivityRecord, error) {
				t.Error("waiter must not start a second fetch")
				return model.ActivityRecord{}, nil
			})
			waiterErr <- err
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		Convey("Then the waiter should fail with the context error", func() {
			So(errors.Is(<-waiterErr, context.Canceled), ShouldBeTrue)
		})

		Convey("Then the underlying fetch should still run to completion", func() {
			close(release)
			So(<-ownerDone, ShouldBeNil)
			So(g.Size(), ShouldEqual, 0)
		})
	})
}

func TestInMemoryGroup_SizeGauge(t *testing.T) {
	Convey("Given a group with a size gauge callback", t, func() {
		var last atomic.Int64
		g := flight.NewInMemoryGroup(flight.WithSizeGauge(func(n int) {
			last.Store(int64(n))
		}))

		inFlight := make(chan int64, 1)
		_, _, err := g.Do(context.Background(), "alice", func() (model.ActivityRecord, error) {
			inFlight <- last.Load()
			return model.ActivityRecord{}, nil
		})

		Convey("Then the gauge should track insert and removal", func() {
			So(err, ShouldBeNil)
			So(<-inFlight, ShouldEqual, 1)
			So(last.Load(), ShouldEqual, 0)
		})
	})
}

func TestInMemoryGroup_IndependentKeys(t *testing.T) {
	Convey("Given concurrent fetches for different keys", t, func() {
		g := flight.NewInMemoryGroup()
		ctx := context.Background()

		var fetches atomic.Int64
		var wg sync.WaitGroup
		for _, key := range []model.UserKey{"alice", "bob", "carol"} {
			wg.Add(1)
			go func(key model.UserKey) {
				defer wg.Done()
				_, _, _ = g.Do(ctx, key, func() (model.ActivityRecord, error) {
					fetches.Add(1)
					return model.ActivityRecord{User: key}, nil
				})
			}(key)
		}
		wg.Wait()

		Convey("Then each key should fetch independently", func() {
			So(fetches.Load(), ShouldEqual, 3)
			So(g.Size(), ShouldEqual, 0)
		})
	})
}
