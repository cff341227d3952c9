// Package notify renders DOZO's notification emails and hands them to a
// mail transport. The Notifier is the single point where transport failures
// are absorbed: callers receive a boolean and never see a transport error.
package notify
