/*
Package observability turns engine lifecycle events into Prometheus metrics
and structured log lines.

Both are plain domain.LifecycleHooks values, so they compose with each other
and with user hooks through domain.ComposeHooks.
*/
package observability
