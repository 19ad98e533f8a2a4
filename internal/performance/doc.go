// Package performance grades running campaigns against industry benchmarks
// and the performance guarantee, and turns poor grades into prioritised
// optimization actions.
//
// The grading path is collecting → scored → threshold_checked. A campaign with
// no analytics yet stays in collecting and is reported with status pending.
// High-priority actions are executed automatically, each in isolation; the
// rest are returned for manual review.
package performance
