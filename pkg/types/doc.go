/*
Package types defines the core data structures shared across the shake-map
follow-up pipeline.

This package contains the domain model described in spec.md §3: the
ScheduledQuery row that drives the scheduler and store, the alert record
consumed by ingress, the provider-normalized RawStation, and the engine's
parsed output types (FinderEvent, FinderRupture, FinderChannel,
FinderSolution).

# Core Types

Scheduling:
  - ScheduledQuery: the atomic unit of work, keyed by (event_id, service,
    delay_minutes)
  - Key: the composite primary key
  - Status: PENDING, PROCESSING, COMPLETED, INCOMPLETE

Alert ingress:
  - AlertRecord: one record from the real-time alert feed

Merge layer:
  - RawStation: one provider's peak-motion observation, already reduced to
    its max-PGA channel and normalized to cm/s^2

Engine output:
  - FinderEvent, RupturePoint, FinderRupture, FinderChannel, FinderSolution

All types are plain data; no method on them performs I/O.
*/
package types
