// Package eo frames the Endless Online wire protocol for the proxy. Number
// encoding is delegated to eolib; this package adds the 2-byte
// length-prefixed packet framing on top of it.
package eo

// Upper bounds (exclusive) of the values representable by 1, 2, 3 and 4
// encoded bytes.
const (
	CharMax  = 253
	ShortMax = CharMax * CharMax
	ThreeMax = CharMax * CharMax * CharMax
	IntMax   = CharMax * CharMax * CharMax * CharMax
)
