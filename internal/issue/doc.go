// Package issue classifies reported issues into priorities.
//
// An Issue records its severity and the instant it was created, read once
// from the Clock it was constructed with. Every call to Priority reads the
// same Clock again, so the result follows the passage of time as that Clock
// reports it and nothing is cached between calls.
//
// The policy:
//
//	Feature                  -> None
//	Bug, age < 24h           -> Concerning
//	Bug, age >= 24h          -> Immediate
//	any other severity       -> Immediate
//
// Clocks in this module cannot be closed. A Clock implementation that panics
// in Now propagates that panic to the caller of New or Priority.
package issue
