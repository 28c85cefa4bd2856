// Package task manages the durable translation pipeline: building tasks from
// a library selection, queuing them, initiating remote jobs one at a time,
// polling many in-flight jobs concurrently, and importing finished results
// back into the item store. All task state is persisted after every mutation
// so the pipeline survives application restarts without duplicating work.
package task
