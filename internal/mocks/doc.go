// Package mocks provides in-memory test doubles for the store interfaces and
// for the notifier. Each mock behaves like a small database by default and
// exposes Fn fields to override individual methods.
package mocks
