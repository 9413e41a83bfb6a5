package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCheckpointRecordJSONRoundTrip(t *testing.T) {
	original := CheckpointRecord{
		Timestamp:   1700000000,
		BlockNumber: 612345,
		Factories: []FactoryRecord{
			{Kind: "jediswap", Address: "0xdad44c139a476c7a17fc8141e6db680e9abc9f56fe249a105094c44382c2fd", Fee: 30},
			{Kind: "tenkswap", Address: "0x1c0a36e26a8f822e0d81f20a5a562b16a8f8a3dfd99801367dd2aea8f1a87a2", Fee: 30},
		},
		Pools: []PoolRecord{
			{
				Kind:      "jediswap",
				Address:   "0x4d0390b777b424e43839cd1e744799f3de6c176c7e32c1812a41dbd9c19db6a",
				TokenA:    "0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7",
				TokenB:    "0x53c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8",
				DecimalsA: 18,
				DecimalsB: 6,
				ReserveA:  "340282366920938463463374607431768211457",
				ReserveB:  "2000000000",
				Fee:       30,
			},
		},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded CheckpointRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round trip mismatch: %#v != %#v", original, decoded)
	}
}

func TestPoolRecordReservesAreStrings(t *testing.T) {
	data, err := json.Marshal(PoolRecord{Kind: "tenkswap", ReserveA: "1", ReserveB: "2"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"reserve_a", "reserve_b"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
	if decoded["kind"] != "tenkswap" {
		t.Fatalf("unexpected kind: %v", decoded["kind"])
	}
}
