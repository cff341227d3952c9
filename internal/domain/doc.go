// Package domain contains the core business entities of DOZO: tasks with
// optional due dates and their delivery flags, users with notification
// preferences, and the daily digest. It is independent of storage and
// transport.
package domain
