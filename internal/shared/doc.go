// Package shared holds cross-cutting helpers that belong to no single
// domain package.
//
// The testutil subpackage provides the capturing slog handler used by
// tests across the codebase to assert on emitted log records. Nothing
// in here may import other internal packages.
package shared
