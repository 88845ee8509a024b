// Package tracker is the domain facade between alert ingestion and the raw
// storage.Store: it knows how a ScheduledQuery row is born from a Policy,
// how its status transitions are named, and how EMSC alert metadata flows
// back into rows that already exist. pkg/ingress and pkg/worker never touch
// storage.Store directly; pkg/scheduler reads due rows with FetchDue on the
// store and makes its status transitions through the tracker.
package tracker
