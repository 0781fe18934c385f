// Package lifecycle implements the test status state machine and the two
// time-based maintenance sweeps: archival of old completed tests and
// purging of old bounced sends.
//
// Transitions are caller-triggered (pause/resume/stop, or the evaluator
// completing a test with a winner) except the archival sweep, which is an
// idempotent batch safe to run repeatedly and concurrently with counter
// updates. The bounce purge is storage hygiene, not a lifecycle
// transition; it never touches test or variant status.
package lifecycle
