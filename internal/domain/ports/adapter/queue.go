package adapter

import "jpk2json-service/internal/domain/model"

// TaskQueue accepts conversion tasks for asynchronous execution.
type TaskQueue interface {
	// Submit enqueues the task and returns immediately. It returns
	// domain.ErrQueueFull when the queue is saturated.
	Submit(task model.ConversionTask) error
	// Size is the fixed number of execution slots.
	Size() int
	// Depth is the number of tasks waiting for a slot.
	Depth() int
}
