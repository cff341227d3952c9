// Package store defines interfaces for task and user persistence.
// These interfaces abstract the underlying database from the notification
// engine and the services, which only rely on filtered reads, plain
// updates, and the conditional delivery-flag write.
package store
