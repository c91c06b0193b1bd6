// Package hooks provides ready-made template hooks: metadata updates,
// counters, code-block extraction, process execution, debugging and
// conditional jumps.
//
// Every hook leaves its input session untouched and returns a fork carrying
// the change, so the engine adopts the result in one step.
package hooks
