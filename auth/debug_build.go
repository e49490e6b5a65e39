//go:build debug

// File: auth/debug_build.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package auth

// isDebugBuild is true only when built with -tags debug. §4.5: an empty
// configured access token disables authentication entirely in debug
// builds.
const isDebugBuild = true
