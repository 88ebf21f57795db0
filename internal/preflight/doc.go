// Package preflight provides readiness checks for the filesystem paths,
// external binaries, and credentials the pipeline depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup and logs every result, so a
//     broken install is visible before the first episode is processed.
//   - The CLI status command reuses CheckSystemDeps and the individual
//     check functions to display the same readiness view on demand.
//
// Failed checks are reported rather than fatal: each stage re-verifies
// what it needs per episode and fails items with actionable errors.
package preflight
