// Package network lists the addresses DMX output can be sent to.
package network

import (
	"fmt"
	"net"
	"strings"
)

// Interface kinds, in the order targets are listed.
const (
	KindEthernet  = "ethernet"
	KindWifi      = "wifi"
	KindOther     = "other"
	KindLocalhost = "localhost"
	KindGlobal    = "global"
)

// Target is a place Art-Net or sACN unicast output can be aimed at.
type Target struct {
	Interface string `json:"interface"`
	Address   string `json:"address"`
	Broadcast string `json:"broadcast"`
	Kind      string `json:"kind"`
}

// InterfaceKind guesses the kind of a network interface from its name.
func InterfaceKind(name string) string {
	name = strings.ToLower(name)
	switch {
	// en0 is the Wi-Fi port on most Macs
	case name == "en0":
		return KindWifi
	case strings.HasPrefix(name, "eth"), strings.HasPrefix(name, "en"):
		return KindEthernet
	case strings.HasPrefix(name, "wl"), strings.Contains(name, "wifi"), strings.Contains(name, "wireless"):
		return KindWifi
	}
	return KindOther
}

// BroadcastAddr computes the IPv4 broadcast address of ip within mask.
func BroadcastAddr(ip net.IP, mask net.IPMask) net.IP {
	if ip == nil || mask == nil {
		return nil
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil
	}
	if len(mask) == 16 {
		mask = mask[12:16]
	}
	if len(mask) != 4 {
		return nil
	}

	broadcast := make(net.IP, 4)
	for i := range broadcast {
		broadcast[i] = ip4[i] | ^mask[i]
	}
	return broadcast
}

// iface is the part of a net.Interface the target list needs.
type iface struct {
	name  string
	flags net.Flags
	addrs []net.Addr
}

// Targets lists broadcast targets for every IPv4 interface that is up, sorted
// ethernet first, followed by localhost and the global broadcast address.
func Targets() ([]Target, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	list := make([]iface, 0, len(interfaces))
	for _, ni := range interfaces {
		addrs, err := ni.Addrs()
		if err != nil {
			continue
		}
		list = append(list, iface{name: ni.Name, flags: ni.Flags, addrs: addrs})
	}
	return targetsFrom(list), nil
}

func targetsFrom(interfaces []iface) []Target {
	byKind := make(map[string][]Target)
	for _, ni := range interfaces {
		if ni.flags&net.FlagUp == 0 || ni.flags&net.FlagLoopback != 0 {
			continue
		}
		for _, addr := range ni.addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			broadcast := BroadcastAddr(ip4, ipNet.Mask)
			// Point-to-point links have no broadcast address.
			if broadcast == nil || broadcast.Equal(ip4) {
				continue
			}
			kind := InterfaceKind(ni.name)
			byKind[kind] = append(byKind[kind], Target{
				Interface: ni.name,
				Address:   ip4.String(),
				Broadcast: broadcast.String(),
				Kind:      kind,
			})
		}
	}

	var targets []Target
	for _, kind := range []string{KindEthernet, KindWifi, KindOther} {
		targets = append(targets, byKind[kind]...)
	}
	return append(targets,
		Target{Interface: "lo", Address: "127.0.0.1", Broadcast: "127.0.0.1", Kind: KindLocalhost},
		Target{Interface: "global", Address: "0.0.0.0", Broadcast: "255.255.255.255", Kind: KindGlobal},
	)
}

// ValidateOutputAddress checks that addr is an IPv4 address output can be sent to.
func ValidateOutputAddress(addr string) error {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("%q is not an IPv4 address", addr)
	}
	if ip.IsUnspecified() {
		return fmt.Errorf("%q cannot be used as an output address", addr)
	}
	return nil
}
