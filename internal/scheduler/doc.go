// Package scheduler runs periodic jobs with a misfire grace window.
//
// Each job has its own goroutine, so a job never overlaps itself while
// different jobs may run at the same time. A fire noticed later than the
// job's grace window is skipped and the job moves to its next slot.
package scheduler
