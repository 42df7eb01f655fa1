package sqlbridge

import (
	"log/slog"

	"github.com/leapstack-labs/stagehand/pkg/driver"
)

func init() {
	driver.Register("sql", func(logger *slog.Logger) driver.Driver {
		return New(logger)
	})
}
