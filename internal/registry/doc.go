// Package registry holds reducers merged at registration time, keyed by store key.
//
// The compiler depends only on the Registry interface (a single Merge method);
// Memory is the in-process implementation used by the public façade, the
// scenario harness and tests. A store key hosts one or more reducer fragments,
// each produced by one registered action. The combined reducer for a key runs
// the fragments in merge order, threading state through each. Compiled
// fragments are identity for action types they do not own, so composition is
// order-insensitive except for the initial state: the first fragment resolves
// a nil state to its initial state.
//
// Registration is expected to finish before dispatch begins. Memory is still
// guarded by an RWMutex so concurrent lookups after startup are safe.
package registry
