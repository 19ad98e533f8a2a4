// Package domain defines the core types for the adaptive learning and
// performance-optimization core.
//
// Types in this package are value objects with no database dependencies and no
// HTTP concerns. They are the shared language between the learning engine,
// the performance monitor, the stores and the API layer.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Validation methods are allowed (they're pure functions on the type)
//   - Constants and enums belong here
package domain
