package backoff_test

import (
	"testing"
	"time"

	backoff "github.com/devquest-io/analytics/internal/domain/backoff"
	. "github.com/smartystreets/goconvey/convey"
)

func noJitter(time.Duration) time.Duration { return 0 }

func TestPolicyDelay(t *testing.T) {
	Convey("Given a deterministic backoff policy", t, func() {
		p := backoff.NewPolicy(
			backoff.WithBaseDelay(100*time.Millisecond),
			backoff.WithMultiplier(2),
			backoff.WithMaxDelay(time.Second),
			backoff.WithMaxAttempts(5),
			backoff.WithJitter(noJitter),
		)

		Convey("When computing delays for successive attempts", func() {
			Convey("Then delays should grow exponentially", func() {
				So(p.Delay(0), ShouldEqual, 100*time.Millisecond)
				So(p.Delay(1), ShouldEqual, 200*time.Millisecond)
				So(p.Delay(2), ShouldEqual, 400*time.Millisecond)
				So(p.Delay(3), ShouldEqual, 800*time.Millisecond)
			})

			Convey("Then delays should be capped at the max delay", func() {
				So(p.Delay(4), ShouldEqual, time.Second)
				So(p.Delay(50), ShouldEqual, time.Second)
			})

			Convey("Then negative attempts should clamp to the base delay", func() {
				So(p.Delay(-1), ShouldEqual, 100*time.Millisecond)
			})
		})

		Convey("When reading the attempt cap", func() {
			So(p.MaxAttempts(), ShouldEqual, 5)
		})
	})
}

func TestPolicyJitter(t *testing.T) {
	Convey("Given a policy with default jitter", t, func() {
		p := backoff.NewPolicy(
			backoff.WithBaseDelay(100*time.Millisecond),
			backoff.WithMultiplier(2),
			backoff.WithMaxDelay(10*time.Second),
		)

		Convey("When sampling many delays for one attempt", func() {
			for i := 0; i < 100; i++ {
				d := p.Delay(1)

				// Jitter adds at most half the scaled delay.
				So(d, ShouldBeGreaterThanOrEqualTo, 200*time.Millisecond)
				So(d, ShouldBeLessThan, 300*time.Millisecond)
			}
		})
	})
}

func TestPolicyDefaults(t *testing.T) {
	Convey("Given a default policy", t, func() {
		p := backoff.NewPolicy()

		Convey("Then it should mirror the documented defaults", func() {
			So(p.MaxAttempts(), ShouldEqual, 3)
			So(p.Delay(100), ShouldEqual, 30*time.Second)
		})
	})
}
