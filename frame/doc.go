// Package frame implements the outermost message-transport frame
// (spec.md §4.3): a variable-length random prefix, a fixed header, and an
// AEAD-encrypted payload of concatenated inner messages. It also derives
// the Global-Shared-Secret-dependent data-size Offset/XOR settings
// (spec.md §4.8) and the auto-generated pre-handshake obfuscation key
// (spec.md §4.3).
package frame
