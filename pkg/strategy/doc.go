// Package strategy provides the policies a Subroutine uses to seed its child
// session (init strategies) and to fold the child's messages back into the
// parent (squash strategies).
package strategy
