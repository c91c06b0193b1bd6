// Package mcp exposes tendril over the Model Context Protocol.
//
// Every tool of a registry becomes an MCP tool with a matching input
// schema. The run_flow tool drives a conversation flow against a stored
// session, answering its questions with the given input, and the
// tendril://sessions resources expose stored sessions as JSON.
package mcp
