// Package queue provides outbound queues for resolved payloads.
//
// Memory keeps records in process and is meant for tests and short-lived
// tools. Badger persists them so a separate uploader can drain the queue
// after a restart. Both accept each resource identifier once; repeated
// enqueues of a known identifier succeed without storing anything.
package queue
