package model

import (
	"encoding/json"
	"testing"
)

func TestPoolEventJSONStringAmounts(t *testing.T) {
	event := PoolEvent{
		ID:        "3f1a0a51-7a38-44ad-9d6a-1f6f6f0c2a10",
		Seq:       7,
		Type:      EventWithdraw,
		Pool:      "0x1111111111111111111111111111111111111111",
		Depositor: "0x2222222222222222222222222222222222222222",
		Amount:    "12345678901234567890",
		Principal: "12000000000000000000",
		Interest:  "-42",
		Units:     "5000000000000000000",
		Timestamp: 1700000000,
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := decoded["amount"].(string); !ok {
		t.Fatalf("amount should be string")
	}
	if _, ok := decoded["interest"].(string); !ok {
		t.Fatalf("interest should be string")
	}
	if _, ok := decoded["units"].(string); !ok {
		t.Fatalf("units should be string")
	}

	var roundTrip PoolEvent
	if err := json.Unmarshal(data, &roundTrip); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if roundTrip.Interest != "-42" {
		t.Fatalf("interest mismatch: %s", roundTrip.Interest)
	}
}
