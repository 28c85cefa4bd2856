// Package events provides the notification seam between the task engine and
// whatever renders the task list. The registry fires a payload-free
// "tasks changed" signal after every mutation; subscribers re-read the task
// list rather than receiving diffs, which keeps the engine free of any
// rendering concerns.
package events
