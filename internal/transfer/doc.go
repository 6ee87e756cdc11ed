// Package transfer copies a card's enumerated files into the run's
// destination day-folder. Every file lands through an atomic temp-and-rename
// write, so an interrupted run never leaves a partial file under its final
// name. Re-running against the same destination skips files whose digest
// already matches the source, which makes resumption free.
package transfer
