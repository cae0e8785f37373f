package network

import (
	"net"
	"testing"
)

func TestBroadcastAddr(t *testing.T) {
	tests := []struct {
		name     string
		ip       net.IP
		mask     net.IPMask
		expected string
	}{
		{
			name:     "Class C network",
			ip:       net.ParseIP("192.168.1.100"),
			mask:     net.IPv4Mask(255, 255, 255, 0),
			expected: "192.168.1.255",
		},
		{
			name:     "Class B network",
			ip:       net.ParseIP("172.16.5.10"),
			mask:     net.IPv4Mask(255, 255, 0, 0),
			expected: "172.16.255.255",
		},
		{
			name:     "Class A network",
			ip:       net.ParseIP("10.0.0.5"),
			mask:     net.IPv4Mask(255, 0, 0, 0),
			expected: "10.255.255.255",
		},
		{
			name:     "/28 subnet",
			ip:       net.ParseIP("192.168.1.20"),
			mask:     net.IPv4Mask(255, 255, 255, 240), // /28
			expected: "192.168.1.31",
		},
		{
			name:     "/30 subnet",
			ip:       net.ParseIP("192.168.1.5"),
			mask:     net.IPv4Mask(255, 255, 255, 252), // /30
			expected: "192.168.1.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BroadcastAddr(tt.ip, tt.mask)
			if result == nil {
				t.Fatalf("BroadcastAddr returned nil")
			}
			if result.String() != tt.expected {
				t.Errorf("BroadcastAddr(%s, %v) = %s, want %s",
					tt.ip, tt.mask, result.String(), tt.expected)
			}
		})
	}
}

func TestBroadcastAddr_NilInputs(t *testing.T) {
	if BroadcastAddr(nil, net.IPv4Mask(255, 255, 255, 0)) != nil {
		t.Error("BroadcastAddr(nil, mask) should return nil")
	}
	if BroadcastAddr(net.ParseIP("192.168.1.1"), nil) != nil {
		t.Error("BroadcastAddr(ip, nil) should return nil")
	}
	if BroadcastAddr(net.ParseIP("::1"), net.IPv4Mask(255, 255, 255, 0)) != nil {
		t.Error("BroadcastAddr(ipv6, mask) should return nil")
	}
}

func TestInterfaceKind(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"en0", KindWifi},
		{"en1", KindEthernet},
		{"eth0", KindEthernet},
		{"enp3s0", KindEthernet},
		{"wlan0", KindWifi},
		{"wlp2s0", KindWifi},
		{"utun3", KindOther},
		{"bridge100", KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InterfaceKind(tt.name); got != tt.expected {
				t.Errorf("InterfaceKind(%s) = %s, want %s", tt.name, got, tt.expected)
			}
		})
	}
}

func ipNet(cidr string) *net.IPNet {
	ip, n, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err)
	}
	n.IP = ip
	return n
}

func TestTargetsFrom(t *testing.T) {
	targets := targetsFrom([]iface{
		{name: "wlan0", flags: net.FlagUp, addrs: []net.Addr{ipNet("192.168.4.20/24")}},
		{name: "eth0", flags: net.FlagUp, addrs: []net.Addr{ipNet("10.0.0.5/8"), ipNet("fe80::1/64")}},
		{name: "eth1", flags: 0, addrs: []net.Addr{ipNet("172.16.0.1/16")}},
		{name: "lo", flags: net.FlagUp | net.FlagLoopback, addrs: []net.Addr{ipNet("127.0.0.1/8")}},
		{name: "ppp0", flags: net.FlagUp, addrs: []net.Addr{ipNet("100.64.0.1/32")}},
	})

	expected := []Target{
		{Interface: "eth0", Address: "10.0.0.5", Broadcast: "10.255.255.255", Kind: KindEthernet},
		{Interface: "wlan0", Address: "192.168.4.20", Broadcast: "192.168.4.255", Kind: KindWifi},
		{Interface: "lo", Address: "127.0.0.1", Broadcast: "127.0.0.1", Kind: KindLocalhost},
		{Interface: "global", Address: "0.0.0.0", Broadcast: "255.255.255.255", Kind: KindGlobal},
	}
	if len(targets) != len(expected) {
		t.Fatalf("Expected %d targets, got %d: %+v", len(expected), len(targets), targets)
	}
	for i := range expected {
		if targets[i] != expected[i] {
			t.Errorf("Target %d = %+v, want %+v", i, targets[i], expected[i])
		}
	}
}

func TestTargets_EndsWithLocalhostAndGlobal(t *testing.T) {
	targets, err := Targets()
	if err != nil {
		t.Fatalf("Targets failed: %v", err)
	}
	if len(targets) < 2 {
		t.Fatalf("Expected at least 2 targets, got %d", len(targets))
	}
	if targets[len(targets)-2].Kind != KindLocalhost {
		t.Errorf("Expected localhost second to last, got %s", targets[len(targets)-2].Kind)
	}
	if targets[len(targets)-1].Broadcast != "255.255.255.255" {
		t.Errorf("Expected global broadcast last, got %s", targets[len(targets)-1].Broadcast)
	}
}

func TestValidateOutputAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"192.168.1.255", false},
		{"255.255.255.255", false},
		{"10.0.0.9", false},
		{"0.0.0.0", true},
		{"::1", true},
		{"lighting-node", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateOutputAddress(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOutputAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}
