// Package abtest implements the experiment engine: tests, variants, sends,
// the atomic counter-update protocol, significance evaluation, and winner
// selection.
//
// The service layer contains all business logic and depends only on the
// Repository interface defined in this package; it should never import
// from api/. Repository implementations live in repository/postgres/.
//
// Concurrency: the only shared mutable state is a variant's four counters,
// and the repository contract makes each counter increment a single atomic
// read-modify-write, so the service needs no locks of its own. Significance
// and winner computations are read-only snapshots; increments landing after
// the snapshot are picked up by the next evaluation.
package abtest
