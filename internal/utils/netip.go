package utils

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
)

// LoopbackCIDRs is the default client allow-list of the local API.
var LoopbackCIDRs = []string{"127.0.0.0/8", "::1/128"}

// HostOnly strips the port from "host:port" or "[v6]:port". Anything else is returned as is.
func HostOnly(s string) string {
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}

// ClientAddr resolves the address of the caller. Forwarding headers are only
// read when trustProxy is set: the left-most X-Forwarded-For entry first,
// then X-Real-IP. The zero Addr means the address could not be parsed.
func ClientAddr(r *http.Request, trustProxy bool) netip.Addr {
	if trustProxy {
		xff, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		for _, v := range []string{xff, r.Header.Get("X-Real-IP")} {
			if addr, ok := parseAddr(v); ok {
				return addr
			}
		}
	}

	addr, _ := parseAddr(r.RemoteAddr)
	return addr
}

func parseAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(strings.Trim(HostOnly(s), "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// CIDRSet is a set of client networks. A bare address is a single-host network.
type CIDRSet struct {
	prefixes []netip.Prefix
}

// ParseCIDRSet parses an allow-list. Blank entries are skipped and an empty
// list yields LoopbackCIDRs. Entries that do not parse are reported together
// and left out of the returned set.
func ParseCIDRSet(list []string) (CIDRSet, error) {
	var (
		set  CIDRSet
		errs []error
	)

	for _, raw := range list {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			set.prefixes = append(set.prefixes, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(s); err == nil {
			addr = addr.Unmap()
			set.prefixes = append(set.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		errs = append(errs, fmt.Errorf("invalid client network %q", s))
	}

	if len(set.prefixes) == 0 && len(errs) == 0 {
		for _, s := range LoopbackCIDRs {
			set.prefixes = append(set.prefixes, netip.MustParsePrefix(s))
		}
	}

	return set, errors.Join(errs...)
}

// Contains reports whether addr belongs to one of the networks
func (s CIDRSet) Contains(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	return slices.ContainsFunc(s.prefixes, func(p netip.Prefix) bool {
		return p.Contains(addr)
	})
}

// Strings lists the networks in CIDR notation
func (s CIDRSet) Strings() []string {
	out := make([]string, len(s.prefixes))
	for i, p := range s.prefixes {
		out[i] = p.String()
	}
	return out
}
