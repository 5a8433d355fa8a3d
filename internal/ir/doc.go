// Package ir provides the core value types shared by every actionkit package.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Lifecycle type tags are always derived from the action name (LifecycleOf),
//     never set independently
//   - Action.MarshalJSON flattens payload fields next to "type"/"types", matching
//     the dispatch-ready object consumed by dispatch middleware
//   - The promise of an asynchronous action is never serialized
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only encoding used
//     for content-addressed IDs and golden traces
package ir
