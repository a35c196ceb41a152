package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/smfc/matchday/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Storage, convey.ShouldEqual, config.StorageMemory)
			convey.So(cfg.Jitter, convey.ShouldEqual, 3)
			convey.So(cfg.GuestRating, convey.ShouldEqual, 70)
			convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"*"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad setting each", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = " " }},
			{"zero queue", func(c *config.Config) { c.QueueSize = 0 }},
			{"no workers", func(c *config.Config) { c.WorkerCount = 0 }},
			{"no dedupe", func(c *config.Config) { c.DedupeSize = -1 }},
			{"no limit", func(c *config.Config) { c.MaxLeaderboardLimit = 0 }},
			{"negative jitter", func(c *config.Config) { c.Jitter = -1 }},
			{"zero guest rating", func(c *config.Config) { c.GuestRating = 0 }},
			{"unknown storage", func(c *config.Config) { c.Storage = "postgres" }},
			{"sqlite without path", func(c *config.Config) { c.Storage = config.StorageSQLite; c.SQLitePath = "" }},
		}

		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)

			convey.Convey("Then "+tc.name+" is rejected", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("Then sqlite with a path is accepted", func() {
			cfg := config.New()
			cfg.Storage = config.StorageSQLite
			cfg.SQLitePath = "/tmp/m.db"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
