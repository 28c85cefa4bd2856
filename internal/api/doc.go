// Package api implements the HTTP control surface: task submission, task
// list and history views, retry/cancel actions, and minimal item
// registration. Handlers translate between JSON requests and the task
// service; all task semantics live in the task package.
package api
