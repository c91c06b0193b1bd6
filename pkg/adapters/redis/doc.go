// Package redis backs session storage, distributed locking and model
// response caching with Redis.
//
// All three share one key prefix (DefaultPrefix unless overridden):
//
//	<prefix>session:<id>   session JSON
//	<prefix>sessions       ZSET index, scored by expiry
//	<prefix>lock:<key>     lock token
//	<prefix>cache:<hash>   cached model reply
package redis
