package peers

import (
	"net"
	"testing"
)

func TestIsReservedDocumentationRanges(t *testing.T) {
	cases := []string{"192.0.2.1", "198.51.100.1", "203.0.113.1", "2001:db8::1"}
	for _, ip := range cases {
		if !IsReserved(net.ParseIP(ip), true) {
			t.Errorf("IsReserved(%s, live) = false, want true", ip)
		}
	}
}

func TestIsReservedPrivateRangesLiveOnly(t *testing.T) {
	cases := []string{"10.0.0.1", "172.16.0.1", "192.168.1.1", "fc00::1", "100.64.0.1"}
	for _, ip := range cases {
		if !IsReserved(net.ParseIP(ip), true) {
			t.Errorf("IsReserved(%s, live) = false, want true", ip)
		}
		if IsReserved(net.ParseIP(ip), false) {
			t.Errorf("IsReserved(%s, test) = true, want false", ip)
		}
	}
}

func TestIsReservedMulticast(t *testing.T) {
	if !IsReserved(net.ParseIP("224.0.0.1"), false) {
		t.Errorf("multicast address should be reserved regardless of network")
	}
	if !IsReserved(net.ParseIP("ff02::1"), false) {
		t.Errorf("IPv6 multicast address should be reserved regardless of network")
	}
}

func TestIsReservedAllowsPublicAddress(t *testing.T) {
	if IsReserved(net.ParseIP("8.8.8.8"), true) {
		t.Errorf("public address incorrectly flagged as reserved")
	}
}

func TestIsLoopback(t *testing.T) {
	if !IsLoopback(net.ParseIP("127.0.0.1")) {
		t.Errorf("127.0.0.1 should be loopback")
	}
	if !IsLoopback(net.ParseIP("::1")) {
		t.Errorf("::1 should be loopback")
	}
	if IsLoopback(net.ParseIP("8.8.8.8")) {
		t.Errorf("8.8.8.8 should not be loopback")
	}
}
