/*
Package storage provides BoltDB-backed persistence for ScheduledQuery rows.

The storage package implements the Store interface using BoltDB as the
underlying database, giving the scheduler ACID transactions over a single
bucket keyed by "<event_id>/<service>/<delay_minutes>". Rows are
serialized as JSON; a single writer mutex and bbolt's own single-writer
transaction model together give FetchDue-then-CAS callers a consistent
view without an external lock manager.

# Architecture

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            BoltStore                        │          │
	│  │  - File: <dataDir>/pyfinder.db              │          │
	│  │  - Format: B+tree with MVCC                 │          │
	│  │  - Transactions: ACID with fsync             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Bucket Structure                │          │
	│  │  scheduled_queries (key: event/service/delay)│          │
	│  └────────────────────────────────────────────┘          │
	│                                                            │
	└────────────────────────────────────────────────────────────┘

Row keys are built so that a bucket scan ordered by key also groups all
rows for one event together, which lets ListByEvent scan one key prefix
and keeps ad-hoc inspection cheap; CleanupExpired and FetchDue each do a
full-bucket scan, FetchDue sorting in memory (the working set per poll cycle is small: a handful of
in-flight events times one row per pending service/delay pair).

InMemoryStore, in memory.go, implements the same interface over a plain
map guarded by a sync.Mutex, for use in tests that don't want to pay for
a bbolt file.
*/
package storage
