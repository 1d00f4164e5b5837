// Package ndn holds the named-data types the collector exchanges with its
// forwarder: hierarchical names and the Interest and Data packets.
//
// Encoding and decoding go through the ndnd standard library (packet
// format v0.3). The types here keep the collector's plain value shape so
// callers never touch library interfaces directly.
package ndn
