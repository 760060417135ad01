// Package domain contains the core entities and value objects for batchship.
//
// This package is the innermost layer. It has no dependencies on transports,
// storage or logging and holds only the types the scheduler, the delivery
// controller and the accumulation store agree on.
//
// # Entities
//
//   - [Message]: a unit of upstream data with a canonical textual form
//   - [Batch]: a compressed group of messages ready to be published
//   - [Outcome]: the inspectable result of one flush cycle
package domain
