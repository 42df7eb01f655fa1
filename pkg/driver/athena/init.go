package athena

import (
	"log/slog"

	"github.com/leapstack-labs/stagehand/pkg/driver"
)

func init() {
	driver.Register("athena", func(logger *slog.Logger) driver.Driver {
		return New(logger)
	})
}
