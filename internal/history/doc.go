// Package history records sensor readings outside the process and loads
// them back at startup.
//
// The Adapter fronts one primary Store (the external REST service or the
// local SQLite table) and any number of best-effort Mirrors such as
// InfluxDB. Readings reach it two ways:
//
//   - Record writes synchronously and reports failure as ErrSink.
//   - Forward enqueues without blocking; a worker started by Start drains
//     the queue through Record. A full queue drops the reading.
//
// LoadHistory always returns readings newest first, whatever order the
// store produced them in.
package history
