//go:build polyslice_debug

package shape

const debugChecksDefault = true
