// Package security builds the configuration posture report exposed by
// Engine.SecurityReport and the tglinkd report command.
//
// # What this package must NOT do
//
//   - Read configuration itself; callers pass a flattened ReportInput.
//   - Import tglink or any sibling internal package.
package security
