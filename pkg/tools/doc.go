// Package tools provides ready-made domain.Tool implementations: a
// subroutine exposed as a tool and file tools confined to a directory.
package tools
