package retention

import "errors"

// ErrPipelineRunning rejects a run started while another is in flight.
// The attempt is dropped, not queued.
var ErrPipelineRunning = errors.New("deletion pipeline already running")
