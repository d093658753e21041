// Package internal holds the HTTP server runtime shared by the binaries in
// cmd/. It is not part of the public API.
package internal
