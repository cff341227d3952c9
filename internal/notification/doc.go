// Package notification decides which task notifications are due and
// delivers each one at most once.
//
// A tick runs in three steps. The Evaluator scans the task store for tasks
// that are eligible for a reminder or an overdue notice. The Gate re-reads
// each candidate, checks the owner's subscription and the task's delivery
// flag, calls the notifier, and only after a confirmed send records the flag
// with a conditional update. The DigestAggregator builds the per-user daily
// summary, which has no delivery flag.
//
// Engine ties these together and is what the scheduler and the admin API
// call.
package notification
