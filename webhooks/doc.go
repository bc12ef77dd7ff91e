// Package webhooks contains the per-item task that resolves a queued payment
// webhook against the provider and reconciles the result into the ledger.
//
// Every failure is terminal for the item: validation and resolution errors
// discard it, and transient provider errors discard it too, because the
// provider's own webhook redelivery is the retry mechanism. The drain loop
// never sees an error from a task, only a typed outcome.
package webhooks
