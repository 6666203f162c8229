package model

import (
	"testing"
	"time"
)

func TestNormalizeAddressVariants(t *testing.T) {
	cases := []struct {
		a, cityA string
		b, cityB string
	}{
		{"123 Main Street", "Springfield", "123 main st.", "springfield"},
		{"45 W. Oak Avenue", "Denver", "45 West Oak Ave", "Denver"},
		{"9 Lakeshore Drive, Unit 4", "Austin", "9   lakeshore dr apt 4", "AUSTIN"},
	}
	for _, c := range cases {
		got := NormalizeAddress(c.a, c.cityA)
		want := NormalizeAddress(c.b, c.cityB)
		if got != want {
			t.Fatalf("normalization mismatch: %q != %q", got, want)
		}
	}
}

func TestPropertyKeySharedBucket(t *testing.T) {
	a := PropertyRecord{Address: "123 Main Street", City: "Springfield", Price: PriceFromDollars(450_000)}
	b := PropertyRecord{Address: "123 Main St", City: "Springfield", Price: PriceFromDollars(451_000)}
	if a.Key() != b.Key() {
		t.Fatalf("expected shared key, got %v and %v", a.Key(), b.Key())
	}

	c := PropertyRecord{Address: "123 Main St", City: "Springfield", Price: PriceFromDollars(510_000)}
	if a.Key() == c.Key() {
		t.Fatalf("expected distinct bucket, got %v for both", a.Key())
	}
}

func TestPropertyEqualPayloadIgnoresSourceAndTime(t *testing.T) {
	base := PropertyRecord{
		Source:   "zenlow",
		Address:  "77 Birch Ln",
		City:     "Portland",
		Price:    PriceFromDollars(625_000),
		Bedrooms: 3,
		Fetched:  time.Unix(100, 0),
	}
	same := base
	same.Source = "hometrack"
	same.ListingID = "other-id"
	same.Fetched = time.Unix(200, 0)
	if !base.EqualPayload(same) {
		t.Fatal("payload should match across sources")
	}

	diff := base
	diff.Price = PriceFromDollars(626_000)
	if base.EqualPayload(diff) {
		t.Fatal("payload should differ on price")
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want Price
	}{
		{"451000", 45_100_000},
		{"451000.5", 45_100_050},
		{"451000.50", 45_100_050},
		{"0.99", 99},
		{"-12.34", -1234},
		{"1234.5678", 123_456},
	}
	for _, c := range cases {
		got, err := ParsePrice(c.in)
		if err != nil {
			t.Fatalf("parse %q: %+v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("parse %q: got %d want %d", c.in, got, c.want)
		}
	}
	if _, err := ParsePrice(""); err == nil {
		t.Fatal("expected error for empty price")
	}
}

func TestPriceBucket(t *testing.T) {
	if PriceFromDollars(449_999.99).Bucket() != 8 {
		t.Fatalf("bucket mismatch: %d", PriceFromDollars(449_999.99).Bucket())
	}
	if PriceFromDollars(450_000).Bucket() != 9 {
		t.Fatalf("bucket mismatch: %d", PriceFromDollars(450_000).Bucket())
	}
	if PriceFromDollars(-1).Bucket() != -1 {
		t.Fatal("negative price should land in the invalid bucket")
	}
}
