// Package workflow sequences a complete asset build: collect the requested
// models into a scratch workspace, pack the model container, generate the
// manifest, pack the asset bundle, and copy the verified result to its
// destination.
//
// The orchestrator is the only place that performs cleanup and the only place
// that classifies failures. Builds run synchronously through a fixed step
// list; any step failure short-circuits to teardown, and the scratch
// workspace is removed exactly once whether the build succeeds or fails.
// Concurrent builds against the same output path are serialized with a file
// lock; everything else assumes exclusive ownership of its scratch directory.
package workflow
