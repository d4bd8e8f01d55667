//go:build windows

// File: aio/addr_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import (
	"net/netip"

	"golang.org/x/sys/windows"

	"github.com/missionlove/nanomsg/api"
)

func sockaddr(domain int, addr netip.AddrPort) (windows.Sockaddr, error) {
	ip := addr.Addr()
	switch domain {
	case windows.AF_INET:
		if !ip.IsValid() {
			ip = netip.IPv4Unspecified()
		}
		ip = ip.Unmap()
		if !ip.Is4() {
			return nil, &api.OpError{Op: "sockaddr", Err: api.ErrInvalidArgument}
		}
		return &windows.SockaddrInet4{Port: int(addr.Port()), Addr: ip.As4()}, nil
	case windows.AF_INET6:
		if !ip.IsValid() {
			ip = netip.IPv6Unspecified()
		}
		return &windows.SockaddrInet6{Port: int(addr.Port()), Addr: ip.As16()}, nil
	}
	return nil, &api.OpError{Op: "sockaddr", Err: api.ErrNotSupported}
}

func addrPort(sa windows.Sockaddr) netip.AddrPort {
	switch sa := sa.(type) {
	case *windows.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
	case *windows.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port))
	}
	return netip.AddrPort{}
}
