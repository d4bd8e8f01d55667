//go:build unix

// File: aio/addr_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package aio

import (
	"net/netip"

	"golang.org/x/sys/unix"

	"github.com/missionlove/nanomsg/api"
)

// sockaddr converts addr for a socket of the given domain. An invalid
// address means the unspecified address of the domain. IPv4 addresses on an
// IPv6 socket become v4-mapped.
func sockaddr(domain int, addr netip.AddrPort) (unix.Sockaddr, error) {
	ip := addr.Addr()
	switch domain {
	case unix.AF_INET:
		if !ip.IsValid() {
			ip = netip.IPv4Unspecified()
		}
		ip = ip.Unmap()
		if !ip.Is4() {
			return nil, &api.OpError{Op: "sockaddr", Err: api.ErrInvalidArgument}
		}
		return &unix.SockaddrInet4{Port: int(addr.Port()), Addr: ip.As4()}, nil
	case unix.AF_INET6:
		if !ip.IsValid() {
			ip = netip.IPv6Unspecified()
		}
		return &unix.SockaddrInet6{Port: int(addr.Port()), Addr: ip.As16()}, nil
	}
	return nil, &api.OpError{Op: "sockaddr", Err: api.ErrNotSupported}
}

func addrPort(sa unix.Sockaddr) netip.AddrPort {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port))
	}
	return netip.AddrPort{}
}
