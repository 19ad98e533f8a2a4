// Package learning turns campaign outcomes into graded insights, per-user
// learning profiles and per-user prediction models.
//
// Everything on the analysis path degrades instead of failing: malformed
// campaign fields fall back to defaults, an unavailable or misbehaving text
// generator falls back to a deterministic insight, and partially corrupted
// stored profiles are recovered field by field. Only state that cannot be
// recovered at all surfaces as a *StateError.
package learning
