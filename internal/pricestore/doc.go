// Package pricestore owns the displayed quote table shared by every view.
//
// Real ticks are written into a pending slot per symbol (last write wins)
// and become visible only when the flush loop runs. Until the first real
// tick arrives, a watchdog fills the pending slots with small random moves
// around the displayed price so the table does not look frozen.
// Consumers subscribe to flushed batches through bounded queues.
package pricestore
