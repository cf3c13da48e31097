// Package types provides core types used across the codeflow runtime.
// This package has ZERO dependencies on other codeflow packages to avoid
// circular imports. All other packages should import types from here.
package types
