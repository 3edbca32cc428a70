package awsranges

import (
	"net/netip"
	"reflect"
	"testing"
)

func fixtureRangeFile() *RangeFile {
	return &RangeFile{
		SyncToken:  "1693276800",
		CreateDate: "2025-08-27-00-00-00",
		Prefixes: []Prefix{
			{IPPrefix: "52.0.0.0/11", Region: "us-east-1", Service: "AMAZON", NetworkBorderGroup: "us-east-1"},
			{IPPrefix: "52.1.0.0/16", Region: "us-east-1", Service: "EC2", NetworkBorderGroup: "us-east-1"},
			{IPPrefix: "13.248.0.0/14", Region: "GLOBAL", Service: "AMAZON", NetworkBorderGroup: "GLOBAL"},
		},
		IPv6Prefixes: []IPv6Prefix{
			{IPv6Prefix: "2406:da60:c000::/40", Region: "ap-southeast-1", Service: "S3", NetworkBorderGroup: "ap-southeast-1"},
			{IPv6Prefix: "2600:1f00::/24", Region: "GLOBAL", Service: "AMAZON", NetworkBorderGroup: "GLOBAL"},
		},
	}
}

func fixtureDataset(t *testing.T) *Dataset {
	t.Helper()
	dataset, err := BuildDataset(fixtureRangeFile(), "Miss from cloudfront")
	if err != nil {
		t.Fatalf("BuildDataset returned error: %v", err)
	}
	return dataset
}

func TestBuildDataset_PreservesFeedOrderAndMetadata(t *testing.T) {
	dataset := fixtureDataset(t)

	if len(dataset.V4) != 3 {
		t.Fatalf("expected 3 v4 entries, got %d", len(dataset.V4))
	}
	if len(dataset.V6) != 2 {
		t.Fatalf("expected 2 v6 entries, got %d", len(dataset.V6))
	}
	if dataset.CacheStatus != "Miss from cloudfront" {
		t.Fatalf("unexpected cache status %q", dataset.CacheStatus)
	}

	wantOrder := []string{"52.0.0.0/11", "52.1.0.0/16", "13.248.0.0/14"}
	for i, want := range wantOrder {
		if dataset.V4[i].IPPrefix != want {
			t.Errorf("v4 entry %d: got prefix %q, want %q", i, dataset.V4[i].IPPrefix, want)
		}
	}

	second := dataset.V4[1]
	if second.Region != "us-east-1" || second.Service != "EC2" || second.NetworkBorderGroup != "us-east-1" {
		t.Errorf("v4 entry 1 metadata = %q/%q/%q, want us-east-1/EC2/us-east-1",
			second.Region, second.Service, second.NetworkBorderGroup)
	}
}

func TestBuildDataset_FailsOnMalformedPrefix(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(raw *RangeFile)
	}{
		{"garbage v4 prefix", func(raw *RangeFile) { raw.Prefixes[1].IPPrefix = "not-a-cidr" }},
		{"v4 prefix without mask", func(raw *RangeFile) { raw.Prefixes[0].IPPrefix = "52.0.0.0" }},
		{"garbage v6 prefix", func(raw *RangeFile) { raw.IPv6Prefixes[0].IPv6Prefix = "2406:::/40" }},
		{"v6 record holding a v4 block", func(raw *RangeFile) { raw.IPv6Prefixes[1].IPv6Prefix = "10.0.0.0/8" }},
		{"v4 record holding a v6 block", func(raw *RangeFile) { raw.Prefixes[2].IPPrefix = "2600:1f00::/24" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := fixtureRangeFile()
			tc.mutate(raw)

			dataset, err := BuildDataset(raw, "UNKNOWN")
			if err == nil {
				t.Fatal("BuildDataset should fail on a malformed record")
			}
			if dataset != nil {
				t.Fatal("a failed build must not hand back a partial dataset")
			}
		})
	}
}

func TestMatch_EnumeratesContainingEntriesInOrder(t *testing.T) {
	dataset := fixtureDataset(t)

	got := dataset.Match(netip.MustParseAddr("52.1.1.1"))
	want := []Match{
		{IPPrefix: "52.0.0.0/11", Region: "us-east-1", Service: "AMAZON", NetworkBorderGroup: "us-east-1"},
		{IPPrefix: "52.1.0.0/16", Region: "us-east-1", Service: "EC2", NetworkBorderGroup: "us-east-1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Match(52.1.1.1) = %v, want %v", got, want)
	}
}

func TestMatch_AddressOutsideAllRangesYieldsEmptySlice(t *testing.T) {
	dataset := fixtureDataset(t)

	for _, raw := range []string{"8.8.8.8", "2206:de60:c000::"} {
		got := dataset.Match(netip.MustParseAddr(raw))
		if got == nil {
			t.Fatalf("Match(%s) returned nil, want empty slice", raw)
		}
		if len(got) != 0 {
			t.Fatalf("Match(%s) = %v, want no matches", raw, got)
		}
	}
}

func TestMatch_IPv6AgainstV6Entries(t *testing.T) {
	dataset := fixtureDataset(t)

	got := dataset.Match(netip.MustParseAddr("2406:da60:c000::"))
	want := []Match{
		{IPPrefix: "2406:da60:c000::/40", Region: "ap-southeast-1", Service: "S3", NetworkBorderGroup: "ap-southeast-1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Match(2406:da60:c000::) = %v, want %v", got, want)
	}
}

func TestMatch_NeverCrossesAddressFamilies(t *testing.T) {
	dataset := fixtureDataset(t)

	// The mapped form of a covered v4 address is still an IPv6 address
	// and must only be tested against the v6 entries.
	if got := dataset.Match(netip.MustParseAddr("::ffff:52.1.1.1")); len(got) != 0 {
		t.Fatalf("Match(::ffff:52.1.1.1) = %v, want no matches", got)
	}
}

func TestMatch_IsDeterministic(t *testing.T) {
	dataset := fixtureDataset(t)
	addr := netip.MustParseAddr("52.1.1.1")

	first := dataset.Match(addr)
	for i := 0; i < 10; i++ {
		if got := dataset.Match(addr); !reflect.DeepEqual(got, first) {
			t.Fatalf("repeat %d: Match returned %v, previously %v", i, got, first)
		}
	}
}
