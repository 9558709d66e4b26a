package session

import (
	"strconv"
	"testing"
)

func FuzzDecodeRecord(f *testing.F) {
	valid, err := EncodeRecord(adminRecord())
	if err != nil {
		f.Fatalf("encode seed: %v", err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("{}")
	f.Add(`{"sessionId":"s","loginTime":1,"expiresAt":2,"userType":"admin"}`)
	f.Add(`{"sessionId":"s","loginTime":1e3,"expiresAt":2e3,"userType":"admin"}`)
	f.Add(`{"sessionId":"s","loginTime":-1,"expiresAt":0,"userType":"admin"}`)
	f.Add(`[]`)

	f.Fuzz(func(t *testing.T, raw string) {
		rec, err := DecodeRecord(KindAdmin, raw)
		if err != nil {
			return
		}
		if rec.ExpiresAt <= rec.LoginTime {
			t.Fatalf("accepted record with expiresAt %d <= loginTime %d", rec.ExpiresAt, rec.LoginTime)
		}
		if rec.Kind != KindAdmin || rec.SessionID == "" {
			t.Fatalf("accepted invalid record %+v", rec)
		}

		again, err := EncodeRecord(rec)
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		back, err := DecodeRecord(KindAdmin, again)
		if err != nil {
			t.Fatalf("decode of re-encoded record: %v", err)
		}
		if back != rec {
			t.Fatalf("round trip changed record: %+v != %+v (login %s)", back, rec, strconv.FormatInt(rec.LoginTime, 10))
		}
	})
}
