package leetcode

import (
	"os"
	"testing"

	"github.com/devquest-io/analytics/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
