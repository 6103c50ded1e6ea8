//go:build !polyslice_debug

package shape

const debugChecksDefault = false
