// Package queue contains the durable webhook task queue and its drain loop.
//
// Items accumulate in a process-local buffer, persist as one batch per
// dispatch, and drain under a persisted lock so exactly one drain runs per
// queue at a time. Batch retrieval orders by the provider transaction number
// embedded in each payload, not by arrival time: providers can deliver a
// capture notification before the authorization that produced it.
package queue
