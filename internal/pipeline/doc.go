// Package pipeline drives one card import end to end: identification,
// collision detection, routing, transfer, verification, and cleanup. Stages
// run strictly forward; a failure lands the run in a terminal failed state
// with a classified kind and the source untouched unless cleanup had already
// been reached. Only the transfer stage retries.
package pipeline
