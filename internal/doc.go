// Package internal contains private implementation details for the transfer module.
// These packages are not intended for external use and may change without notice.
//
// The internal packages are organized as follows:
//   - plan: Transfer strategy selection and chunk policy
//   - preflight: Component registration and coordinate acquisition
//   - single: Whole-payload transfer over one connection
//   - multipart: Part scheduling, bounded concurrency and retry
//   - progress: In-flight/committed byte aggregation
//   - completion: Session commit and compensating cleanup
//   - validation: Input validation logic
//   - clock: Wall-clock scheduler implementation
//   - testutil: Mocks, fakes and test servers shared by the package tests
package internal
