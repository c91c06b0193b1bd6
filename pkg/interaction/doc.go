// Package interaction provides ports.UserInteraction implementations used in
// tests and non-interactive runs.
package interaction
