// Package artnet provides Art-Net protocol packet building.
package artnet

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	// OpCodeDMX is the Art-Net operation code for DMX data (ArtDmx).
	OpCodeDMX uint16 = 0x5000
	// ProtocolVersion is the Art-Net protocol version.
	ProtocolVersion uint16 = 14
	// DMXDataLength is the number of DMX channels per universe.
	DMXDataLength = 512
	// HeaderSize is the size of the ArtDmx header preceding channel data.
	HeaderSize = 18
	// PacketSize is the total size of an Art-Net DMX packet.
	PacketSize = HeaderSize + DMXDataLength
	// DefaultPort is the standard Art-Net UDP port.
	DefaultPort = 6454
	// UniverseMask keeps the 15 bits of the Port-Address (Net + SubUni).
	UniverseMask = 0x7fff
)

// ArtNetID is the Art-Net packet identifier.
var ArtNetID = []byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

// ErrNotArtDmx is returned by ParseDMXHeader for packets that are not ArtDmx.
var ErrNotArtDmx = errors.New("artnet: not an ArtDmx packet")

// Header is the decoded ArtDmx header.
type Header struct {
	OpCode   uint16
	Version  uint16
	Sequence byte
	Physical byte
	Universe uint16
	Length   uint16
}

// BuildDMXPacket creates an Art-Net DMX packet for the specified universe.
// Universe is the 0-based Port-Address; only its low 15 bits are encoded.
// Data longer than 512 bytes is truncated, shorter data is zero-padded; the
// length field carries the number of bytes actually supplied.
// Sequence should increment per frame (wrapping at 256) so receivers can
// detect out-of-order UDP packets.
func BuildDMXPacket(universe int, data []byte, sequence byte) []byte {
	packet := make([]byte, PacketSize)

	length := len(data)
	if length > DMXDataLength {
		length = DMXDataLength
	}

	copy(packet[0:8], ArtNetID)                                                  // ID: "Art-Net\0"
	binary.LittleEndian.PutUint16(packet[8:10], OpCodeDMX)                       // OpCode, little-endian
	binary.BigEndian.PutUint16(packet[10:12], ProtocolVersion)                   // ProtVer, big-endian
	packet[12] = sequence                                                        // Sequence
	packet[13] = 0                                                               // Physical
	binary.LittleEndian.PutUint16(packet[14:16], uint16(universe)&UniverseMask) // SubUni + Net
	binary.BigEndian.PutUint16(packet[16:18], uint16(length))                    // Length, big-endian

	copy(packet[HeaderSize:HeaderSize+length], data[:length])

	return packet
}

// ParseDMXHeader decodes the header of an ArtDmx packet.
func ParseDMXHeader(packet []byte) (Header, error) {
	if len(packet) < HeaderSize || !bytes.Equal(packet[0:8], ArtNetID) {
		return Header{}, ErrNotArtDmx
	}
	h := Header{
		OpCode:   binary.LittleEndian.Uint16(packet[8:10]),
		Version:  binary.BigEndian.Uint16(packet[10:12]),
		Sequence: packet[12],
		Physical: packet[13],
		Universe: binary.LittleEndian.Uint16(packet[14:16]),
		Length:   binary.BigEndian.Uint16(packet[16:18]),
	}
	if h.OpCode != OpCodeDMX {
		return Header{}, ErrNotArtDmx
	}
	return h, nil
}
