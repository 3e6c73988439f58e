package snapshot

import (
	"strings"
	"testing"

	"github.com/louisbranch/fantasy.league/internal/services/league/domain/rider"
	"github.com/louisbranch/fantasy.league/internal/services/league/domain/roster"
)

func buildInput() BuildInput {
	return BuildInput{
		Category: rider.CategoryElite,
		Starters: []roster.Starter{{Slot: 1, RiderID: "b"}, {Slot: 0, RiderID: "a"}},
		BenchID:  "c",
		Profiles: map[string]rider.Profile{
			"a": {ID: "a", Gender: rider.GenderMale, Cost: 100},
			"b": {ID: "b", Gender: rider.GenderFemale, Cost: 200},
			"c": {ID: "c", Gender: rider.GenderFemale, Cost: 300},
		},
		CostOverrides: map[string]int64{"b": 150},
	}
}

func TestBuildOrdersStartersAndAppliesOverrides(t *testing.T) {
	p, err := Build(buildInput())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if p.Starters[0].RiderID != "a" || p.Starters[1].RiderID != "b" {
		t.Fatalf("starters = %+v", p.Starters)
	}
	if p.Starters[1].Cost != 150 {
		t.Fatalf("override cost = %d, want 150", p.Starters[1].Cost)
	}
	if p.Bench == nil || p.Bench.RiderID != "c" || p.Bench.Cost != 300 {
		t.Fatalf("bench = %+v", p.Bench)
	}
}

func TestHashStableAcrossInputOrder(t *testing.T) {
	first, _ := Build(buildInput())
	in := buildInput()
	in.Starters = []roster.Starter{{Slot: 0, RiderID: "a"}, {Slot: 1, RiderID: "b"}}
	second, _ := Build(in)

	h1, err := first.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, _ := second.Hash()
	if h1 != h2 {
		t.Fatalf("hashes differ: %s vs %s", h1, h2)
	}

	in.BenchID = ""
	third, _ := Build(in)
	h3, _ := third.Hash()
	if h3 == h1 {
		t.Fatal("dropping the bench should change the hash")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p, _ := Build(buildInput())
	data, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	h1, _ := p.Hash()
	h2, _ := got.Hash()
	if h1 != h2 {
		t.Fatal("decoded payload hashes differently")
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", "{", "decode snapshot"},
		{"wrong version", `{"version":2,"starters":[]}`, "unsupported version"},
		{"missing rider", `{"version":1,"starters":[{"slot":0,"gender":"m"}]}`, "no rider"},
		{"bad gender", `{"version":1,"starters":[{"slot":0,"riderId":"a","gender":"x"}]}`, "gender"},
		{"bad bench", `{"version":1,"starters":[],"bench":{"riderId":""}}`, "bench"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBuildRequiresProfiles(t *testing.T) {
	in := buildInput()
	in.BenchID = "ghost"
	if _, err := Build(in); err == nil {
		t.Fatal("expected error for rider without profile")
	}
}
