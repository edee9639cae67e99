// Package sessioncache implements a provider-agnostic key/value store with per-key TTL
// and exactly-once expiry notification, plus a session cache and a cache-aside facade
// built on it.
//
// Components:
//   - Provider: byte store with TTL (e.g. Redis, Ristretto, BigCache, bbolt).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - Index: live keys and their logical deadlines. Local (in-process) by default,
//     optional Redis implementation for multi-replica / restart persistence.
//   - Notifier: ordered fan-out of expiry events to listeners.
//
// Keys:
//
//	<namespace>:<id>                   - Sessions entries
//	<name>::<type>_<method>_<args...>  - Facade entries
//
// Expiry:
//
//	sweep (Index.Due), Get past deadline, or Put over an entry past deadline
//	  -> key lock -> re-read -> Index.Claim -> delete -> unlock -> publish
//
// The claim succeeds for one caller only, so listeners see each expiry once. A spent
// claim is always published, even when the caller's context is already cancelled.
//
// Facade results that implement Bounded (Session does) are misses once their own
// deadline passes, so the facade never serves a session past its TTL.
package sessioncache
