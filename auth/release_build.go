//go:build !debug

// File: auth/release_build.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package auth

// isDebugBuild is false by default. §9's resolved Open Question: in release
// builds an empty configured access token fails closed, rejecting every
// request, rather than disabling authentication.
const isDebugBuild = false
