package emulator

import (
	"errors"

	"github.com/ezrec/r4300/translate"
)

var f = translate.From

var (
	// ErrStopTimeout reports a worker that did not observe the stop
	// flag within STOP_TIMEOUT. A warning, not a fatal condition: the
	// worker is left to finish its burst and exit on its own.
	ErrStopTimeout = errors.New(f("worker did not stop in time"))
)
