/*
Package log provides structured logging for the shake-map pipeline using
zerolog.

Unlike a typical package-level-global logger, New builds one zerolog.Logger
from a Config and returns it; callers thread it explicitly into component
constructors (scheduler.NewScheduler(..., logger, ...), worker.New with
worker.Config.Logger).
There is no global logger instance — see DESIGN.md's note on avoiding
implicit module-level logging initialization.
*/
package log
