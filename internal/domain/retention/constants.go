package retention

const (
	// candidatePageSize bounds one keyset page of the account scan.
	candidatePageSize = 100
	// scheduleChunkSize bounds work between scheduling progress logs.
	scheduleChunkSize = 50
	// dueBatchSize bounds one keyset page of the purge scan.
	dueBatchSize = 100
)
