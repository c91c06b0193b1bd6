/*
Package http serves sessions and runs over HTTP.

	GET    /health
	GET    /info
	GET    /sessions
	GET    /sessions/{id}
	DELETE /sessions/{id}
	POST   /runs            {"session_id": "...", "input": ["..."], "metadata": {...}}
	GET    /events?session_id=...   session diffs as server-sent events
	GET    /metrics         when a Prometheus gatherer is configured

Every run gets a fresh runner from the RunnerFactory and holds the session
lock for its whole duration.
*/
package http
