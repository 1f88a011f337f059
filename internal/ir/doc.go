// Package ir provides the value types shared by every relq package.
//
// This package contains value definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps IR the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Structural identity is always computed over RFC 8785 canonical JSON
//     (MarshalCanonical) with domain-separated SHA-256 (Hash)
//   - A missing reference is IRNull, never an absent value
package ir
