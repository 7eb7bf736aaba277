// Package util provides common utility functions used across the hardening library.
//
// This package contains helper functions for string manipulation, formatting,
// and other shared operations that don't fit into domain-specific packages.
//
// Key utilities:
//   - SafeTruncate: Safely truncates strings for logging identifiers and cursors
//   - ClampLimit: Bounds caller-supplied result-set sizes
package util
