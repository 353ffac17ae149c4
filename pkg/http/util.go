package http

import (
	"time"

	xutil "PriceLens/pkg/util"
)

// ParseTime accepts the same layouts as the price loader. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) { return xutil.ParseDate(s) }
