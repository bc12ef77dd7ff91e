// Package core contains the payment reconciliation domain: the transaction
// ledger model, the importer that normalizes provider-reported transactions
// into ledger rows, and the collaborator contracts for gateways, orders and
// durable queue storage.
//
// Provider webhooks arrive at-least-once and out-of-order; the ledger's
// unique external id makes re-imports idempotent, and queue ordering follows
// the provider-assigned transaction number rather than arrival time.
package core
