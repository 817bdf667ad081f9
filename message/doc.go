// Package message implements the inner message carried inside a transport
// frame's decrypted payload (spec.md §3, §4.4): a typed, optionally
// compressed, optionally fragmented unit. A single frame payload holds the
// concatenation of one or more encoded inner messages.
package message
