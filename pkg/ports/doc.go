/*
Package ports defines the driven ports (interfaces) for the Tendril engine.

These interfaces decouple the template engine from the collaborators it
drives: language models, the human on the other side of the conversation,
response caches, and session persistence.

# Key Interfaces

  - Model: Produces the next assistant message for a session, optionally streamed.
  - UserInteraction: Answers a user-input step synchronously.
  - CacheProvider: Opaque lookup/store used by model wrappers.
  - SessionStore: Persists and loads sessions between runs.
  - DistributedLocker: Coordinates access to one session across replicas.
  - FlowRunner: Runs a flow against a session; consumed by the HTTP and MCP adapters.
*/
package ports
