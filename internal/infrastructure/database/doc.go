// Package database manages the SQLite connection for netsync-core.
//
// It wraps database/sql with connection setup (WAL mode, busy timeout,
// foreign keys, single-connection pool), health checks, and an embedded
// migration runner. The single-connection pool matters here: the
// convergence applier holds a transaction per device, and a second
// connection would deadlock against it under SQLite's locking model.
package database
