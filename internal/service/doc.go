// Package service contains the application use cases for tasks and users.
// It coordinates domain objects and the stores defined in internal/store,
// applying transactional boundaries where an operation reads and writes
// several rows.
//
// TaskService is the only writer that resets notification delivery flags:
// an edit that moves the due date, or re-opening a completed task, clears
// both flags inside the same transaction as the edit. UserService owns
// registration, preferences and password changes, and sends the account
// emails through an AccountNotifier.
//
// Services receive their dependencies through constructors and depend on
// store interfaces, never on a specific SQL backend.
package service
