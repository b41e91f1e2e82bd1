package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time.Now so services that stamp records or derive the
// invoice year can be tested against a pinned instant.
type Clock interface {
	Now() time.Time
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)

type SystemClock struct{}

func NewSystemClock() Clock {
	return SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
