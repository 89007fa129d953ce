// Package order provides the order domain model of the admin service and the
// status state machine that guards every mutation.
//
// The package includes:
//   - Order: a validated view of a stored order with its line item count
//   - Status: the closed status enumeration and its transition table
//   - Action: approve, reject and cancel requests applied to a Status
//
// Key business rules:
//   - Orders start pending and are never deleted through the API
//   - pending may be approved, rejected or cancelled; approved may only be cancelled
//   - rejected and cancelled are final, approved never returns to pending
//   - Approval and cancellation flags are derived from Status, never stored
package order
