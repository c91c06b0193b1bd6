/*
Package model provides Model implementations that need no provider: test
doubles with scripted, echoed or computed responses, a streaming adapter,
and a caching wrapper backed by any ports.CacheProvider.

Concrete provider clients live outside this module; they only have to
satisfy ports.Model.
*/
package model
