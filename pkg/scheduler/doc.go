/*
Package scheduler runs the poll loop that turns due ScheduledQuery rows
into dispatched work.

Every poll interval (10s by default) the scheduler asks the store for
PENDING rows whose NextQueryTime has arrived, transitions each to
PROCESSING, and hands it to a bounded worker pool. A row's actual work —
fetching provider data and running the rupture-detection engine, which can
take much longer than one poll interval — runs on pool goroutines, not on
the loop. When every pool slot is busy, Submit waits for one to free, so
the loop stays in that poll cycle until then; no row is dropped or left
for the next tick.

# Architecture

	┌────────────────────────────────────────────────────────────┐
	│                    Scheduler Loop                           │
	│                   (Every poll interval)                     │
	└────────────────┬─────────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────────────────────────────────────┐
	│  FetchDue(now) -> priority desc, next_query_time asc         │
	│  for each row:                                                │
	│    MarkAsProcessing(row.Key)  // PENDING -> PROCESSING        │
	│    pool.Submit(func() { processor.Process(row) })             │
	└────────────────────────────────────────────────────────────┘

FetchDue ordering is deterministic, and the PENDING -> PROCESSING
transition happens before a row is handed to the pool, so a row can never
be dispatched twice within the same poll cycle even if Submit blocks
waiting for a free pool slot.
*/
package scheduler
