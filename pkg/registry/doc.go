// Package registry holds named tools shared by templates, the MCP server and
// the CLI, and helps build tools from plain Go functions.
package registry
