package config_test

import (
	"testing"
	"time"

	"github.com/devquest-io/analytics/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.SweepInterval, convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.CacheTTL, convey.ShouldEqual, time.Hour)
			convey.So(cfg.CacheBackend, convey.ShouldEqual, "memory")
			convey.So(cfg.SinkBackend, convey.ShouldEqual, "memory")
			convey.So(cfg.RetryMaxAttempts, convey.ShouldEqual, 3)
			convey.So(cfg.RetryBaseDelay, convey.ShouldEqual, 500*time.Millisecond)
			convey.So(cfg.RetryMultiplier, convey.ShouldEqual, 2.0)
			convey.So(cfg.RetryMaxDelay, convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.UpstreamTimeout, convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.RecentLimit, convey.ShouldEqual, 10)
			convey.So(cfg.UpstreamURL, convey.ShouldEqual, "https://leetcode.com")
		})
	})
}
