// Package limits provides centralized size constants for the QuantumGate
// peer session subsystem. It exists so that frame, message, buffer, and
// key-exchange code all agree on the same caps without importing each other.
//
// # Size hierarchy
//
//   - MaxInnerData: the largest an inner message's payload may be after
//     compression (spec.md §3). Larger payloads must be fragmented
//     (begin/mid/end) rather than rejected.
//   - MaxMetaListBytes: the length-prefix cap on each algorithm-preference
//     vector exchanged during meta exchange (spec.md §4.2).
//   - MaxRandomPrefix: the upper bound accepted for a transport frame's
//     random prefix length, independent of the configured
//     Message.MaxRandomDataPrefixSize (defense against a malicious peer
//     advertising an unbounded prefix).
//   - MaxProcessingBuffer: the absolute ceiling on any single buffered
//     network read, to bound memory use under adversarial input.
package limits
