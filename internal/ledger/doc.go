// Package ledger persists run summaries in SQLite so past runs can be listed
// and inspected.
//
// The Store manages the database connection, schema initialization and busy
// retries. Each recorded run stores its counts plus one row per merged pair
// and per orphan, keyed by run ID.
//
// Schema changes bump the version in schema.go; users delete the ledger to
// adopt the new schema.
package ledger
