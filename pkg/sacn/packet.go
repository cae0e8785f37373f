// Package sacn provides ANSI E1.31 (Streaming ACN) packet building.
package sacn

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// DefaultPort is the standard sACN UDP port.
	DefaultPort = 5568
	// DefaultPriority is the E1.31 default source priority.
	DefaultPriority = 100
	// MaxPriority is the highest priority a source may send.
	MaxPriority = 200
	// MaxSourceNameLength is the longest source name that keeps the field null-terminated.
	MaxSourceNameLength = 63
	// MaxChannels is the number of DMX slots per universe.
	MaxChannels = 512
	// HeaderSize is the size of all three layers before the first DMX slot.
	HeaderSize = 126
	// MaxPacketSize is the size of a packet carrying a full universe.
	MaxPacketSize = HeaderSize + MaxChannels

	// Option bits in the framing layer.
	OptionPreview    byte = 0x80
	OptionTerminated byte = 0x40
	OptionForceSync  byte = 0x20

	vectorRootE131Data   uint32 = 0x00000004
	vectorE131DataPacket uint32 = 0x00000002
	vectorDMPSetProperty byte   = 0x02
	dmpAddressType       byte   = 0xa1
	flagsHigh            uint16 = 0x7000

	rootLayerStart    = 16
	framingLayerStart = 38
	dmpLayerStart     = 115
)

// ACNPacketIdentifier is the fixed 12 byte identifier of ACN root layer packets.
var ACNPacketIdentifier = []byte{0x41, 0x53, 0x43, 0x2d, 0x45, 0x31, 0x2e, 0x31, 0x37, 0x00, 0x00, 0x00}

// cidNamespace scopes component identifiers derived from source names.
var cidNamespace = uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")

// Options controls the framing layer of a packet.
type Options struct {
	SourceName string
	Priority   int
	Sequence   byte
	Preview    bool
	Terminated bool
	ForceSync  bool
}

// CIDFor returns the component identifier used for a source name. The same
// name always yields the same CID so receivers see one stable source.
func CIDFor(sourceName string) [16]byte {
	return uuid.NewSHA1(cidNamespace, []byte(sourceName))
}

// ClampPriority limits a priority to the [0,200] range.
func ClampPriority(priority int) byte {
	if priority < 0 {
		return 0
	}
	if priority > MaxPriority {
		return MaxPriority
	}
	return byte(priority)
}

// MulticastAddress returns the multicast group for a universe: 239.255.<hi>.<lo>.
func MulticastAddress(universe uint16) string {
	return fmt.Sprintf("239.255.%d.%d", universe>>8, universe&0xff)
}

// BuildPacket creates an E1.31 data packet. Data longer than 512 bytes is
// truncated; the returned buffer is trimmed to the used length.
func BuildPacket(universe uint16, data []byte, opts Options) []byte {
	count := len(data)
	if count > MaxChannels {
		count = MaxChannels
	}
	total := HeaderSize + count
	packet := make([]byte, total)

	// Root layer
	binary.BigEndian.PutUint16(packet[0:2], 0x0010) // preamble size
	binary.BigEndian.PutUint16(packet[2:4], 0x0000) // postamble size
	copy(packet[4:16], ACNPacketIdentifier)
	binary.BigEndian.PutUint16(packet[16:18], flagsHigh|uint16(total-rootLayerStart))
	binary.BigEndian.PutUint32(packet[18:22], vectorRootE131Data)
	cid := CIDFor(opts.SourceName)
	copy(packet[22:38], cid[:])

	// Framing layer
	binary.BigEndian.PutUint16(packet[38:40], flagsHigh|uint16(total-framingLayerStart))
	binary.BigEndian.PutUint32(packet[40:44], vectorE131DataPacket)
	copy(packet[44:108], truncateName(opts.SourceName))
	packet[108] = ClampPriority(opts.Priority)
	binary.BigEndian.PutUint16(packet[109:111], 0) // synchronization address
	packet[111] = opts.Sequence
	packet[112] = options(opts)
	binary.BigEndian.PutUint16(packet[113:115], universe)

	// DMP layer
	binary.BigEndian.PutUint16(packet[115:117], flagsHigh|uint16(total-dmpLayerStart))
	packet[117] = vectorDMPSetProperty
	packet[118] = dmpAddressType
	binary.BigEndian.PutUint16(packet[119:121], 0x0000) // first property address
	binary.BigEndian.PutUint16(packet[121:123], 0x0001) // address increment
	binary.BigEndian.PutUint16(packet[123:125], uint16(1+count))
	packet[125] = 0x00 // DMX start code

	copy(packet[HeaderSize:], data[:count])

	return packet
}

func options(opts Options) byte {
	var b byte
	if opts.Preview {
		b |= OptionPreview
	}
	if opts.Terminated {
		b |= OptionTerminated
	}
	if opts.ForceSync {
		b |= OptionForceSync
	}
	return b
}

// truncateName cuts a source name to MaxSourceNameLength bytes without
// splitting a UTF-8 sequence.
func truncateName(name string) string {
	if len(name) <= MaxSourceNameLength {
		return name
	}
	cut := MaxSourceNameLength
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}
