// Package relay implements the relay plane (spec.md §4.14): a table of
// spliced peer-session pairs keyed by a locally generated RelayPort, and
// the routing logic that turns an inbound RelayCreate into a second leg
// and forwards RelayData/RelayDataAck/RelayStatus between the two legs
// without ever decrypting the payload.
package relay
