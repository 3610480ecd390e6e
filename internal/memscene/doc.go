// Package memscene provides a thread-safe, in-memory implementation of the
// scenebuilder.Builder interface.
//
// # Purpose
//
// This package stands in for a real 3D host. It keeps an addressable global
// namespace of committed scenes plus any number of private workspaces under
// construction, which is exactly the state the executor's atomicity and
// determinism guarantees are stated against.
//
// # Characteristics
//
//   - **Idempotent:** identical call sequences produce identical datablocks
//   - **Atomic commit:** a workspace becomes visible under its final name in
//     one locked step, or not at all
//   - **Inspectable:** Residual counts datablocks left in open workspaces,
//     Fingerprint hashes a committed scene in canonical CBOR
//   - **Fault injection:** a FaultFunc can fail any operation by name
//
// # When to Use
//
// Tests, dry runs of the build path on machines without a host, and the CLI
// when no remote builder is configured.
package memscene
