package util

import (
	"errors"
	"net"
	"strings"
)

var (
	ErrInterfaceDown = errors.New("interface is down")
	ErrNoAddress     = errors.New("interface has no usable address")
)

// BindIface returns the address of ifaceName to use as a probe source for the
// given address family. Global addresses are preferred over link-local ones.
func BindIface(ifaceName string, ipv6 bool) (addr string, err error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return
	}
	if !IsUp(iface) {
		err = ErrInterfaceDown
		return
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return
	}
	return pickAddr(addrs, ipv6)
}

func pickAddr(addrs []net.Addr, ipv6 bool) (string, error) {
	var linkLocal string
	for _, a := range addrs {
		ip, _, err := net.ParseCIDR(a.String())
		if err != nil {
			continue
		}
		if IsIPv6(ip.String()) != ipv6 {
			continue
		}
		if ip.IsLinkLocalUnicast() {
			if linkLocal == "" {
				linkLocal = ip.String()
			}
			continue
		}
		return ip.String(), nil
	}
	if linkLocal != "" {
		return linkLocal, nil
	}
	return "", ErrNoAddress
}

func IsIPv6(address string) bool {
	return strings.Count(address, ":") >= 2
}

func IsUp(nif *net.Interface) bool { return nif.Flags&net.FlagUp != 0 }
