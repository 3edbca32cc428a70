// Package awsranges parses the AWS ip-ranges.json feed and answers
// containment queries against the published prefixes.
package awsranges

import (
	"fmt"
	"net/netip"
)

// RangeFile mirrors the upstream ip-ranges.json document.
type RangeFile struct {
	SyncToken    string       `json:"syncToken"`
	CreateDate   string       `json:"createDate"`
	Prefixes     []Prefix     `json:"prefixes"`
	IPv6Prefixes []IPv6Prefix `json:"ipv6_prefixes"`
}

// Prefix is one raw IPv4 record from the feed.
type Prefix struct {
	IPPrefix           string `json:"ip_prefix"`
	Region             string `json:"region"`
	Service            string `json:"service"`
	NetworkBorderGroup string `json:"network_border_group"`
}

// IPv6Prefix is one raw IPv6 record from the feed.
type IPv6Prefix struct {
	IPv6Prefix         string `json:"ipv6_prefix"`
	Region             string `json:"region"`
	Service            string `json:"service"`
	NetworkBorderGroup string `json:"network_border_group"`
}

// PrefixEntry is a parsed feed record. The network field always covers
// exactly the one CIDR block named by IPPrefix and is never touched
// after construction.
type PrefixEntry struct {
	IPPrefix           string
	Region             string
	Service            string
	NetworkBorderGroup string

	network netip.Prefix
}

// Contains reports whether the entry's published block includes addr.
func (e *PrefixEntry) Contains(addr netip.Addr) bool {
	return e.network.Contains(addr)
}

// Match is the JSON projection of a matched prefix entry.
type Match struct {
	IPPrefix           string `json:"ip_prefix"`
	Region             string `json:"region"`
	Service            string `json:"service"`
	NetworkBorderGroup string `json:"network_border_group"`
}

// Dataset is the parsed, immutable copy of one feed download. Entries
// keep the feed's order; the dataset is shared read-only between
// request handlers once it lands in the cache.
type Dataset struct {
	V4 []PrefixEntry
	V6 []PrefixEntry

	// CacheStatus is the freshness tag the fetch layer saw on the
	// upstream response.
	CacheStatus string
}

// BuildDataset converts the raw feed document into a Dataset. Every
// record becomes exactly one entry; nothing is merged or deduplicated
// so each match can point back at the record it came from. One
// malformed CIDR fails the whole build, so a partial dataset never
// escapes to the cache.
func BuildDataset(raw *RangeFile, cacheStatus string) (*Dataset, error) {
	dataset := &Dataset{
		V4:          make([]PrefixEntry, 0, len(raw.Prefixes)),
		V6:          make([]PrefixEntry, 0, len(raw.IPv6Prefixes)),
		CacheStatus: cacheStatus,
	}

	for _, rec := range raw.Prefixes {
		network, err := parseFamilyPrefix(rec.IPPrefix, false)
		if err != nil {
			return nil, err
		}
		dataset.V4 = append(dataset.V4, PrefixEntry{
			IPPrefix:           rec.IPPrefix,
			Region:             rec.Region,
			Service:            rec.Service,
			NetworkBorderGroup: rec.NetworkBorderGroup,
			network:            network,
		})
	}

	for _, rec := range raw.IPv6Prefixes {
		network, err := parseFamilyPrefix(rec.IPv6Prefix, true)
		if err != nil {
			return nil, err
		}
		dataset.V6 = append(dataset.V6, PrefixEntry{
			IPPrefix:           rec.IPv6Prefix,
			Region:             rec.Region,
			Service:            rec.Service,
			NetworkBorderGroup: rec.NetworkBorderGroup,
			network:            network,
		})
	}

	return dataset, nil
}

func parseFamilyPrefix(raw string, wantV6 bool) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(raw)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("parse prefix %q: %w", raw, err)
	}
	if prefix.Addr().Is6() != wantV6 {
		return netip.Prefix{}, fmt.Errorf("prefix %q does not match its declared address family", raw)
	}
	return prefix.Masked(), nil
}

// Match returns the projection of every entry whose block contains
// addr, in feed order. Dispatch is by address family only: IPv4
// addresses are tested against the v4 entries, everything else against
// the v6 entries, and IPv4-mapped IPv6 input counts as IPv6.
// Overlapping blocks all appear in the result.
func (d *Dataset) Match(addr netip.Addr) []Match {
	entries := d.V6
	if addr.Is4() {
		entries = d.V4
	}

	matches := make([]Match, 0)
	for i := range entries {
		entry := &entries[i]
		if !entry.Contains(addr) {
			continue
		}
		matches = append(matches, Match{
			IPPrefix:           entry.IPPrefix,
			Region:             entry.Region,
			Service:            entry.Service,
			NetworkBorderGroup: entry.NetworkBorderGroup,
		})
	}
	return matches
}
