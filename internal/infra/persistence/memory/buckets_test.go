package memory

import (
	"testing"
)

func TestBucketsRoundTripSnapshot(t *testing.T) {
	store := NewStore(nil, 3)
	mint(t, store, id(1), "alice")
	mint(t, store, id(2), "alice")
	payloads, err := EncodeBuckets(store.ExportState())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(payloads) != len(Buckets) {
		t.Fatalf("expected %d buckets, got %d", len(Buckets), len(payloads))
	}
	var decoded Snapshot
	for bucket, data := range payloads {
		if err := decoded.DecodeBucket(bucket, data); err != nil {
			t.Fatalf("decode %s: %v", bucket, err)
		}
	}
	if err := decoded.DecodeBucket("legacy", []byte(`{}`)); err != nil {
		t.Fatalf("unknown bucket must be ignored: %v", err)
	}
	if decoded.Count != 2 || len(decoded.Kitties) != 2 || len(decoded.Owned["alice"]) != 2 {
		t.Fatalf("unexpected decoded snapshot %+v", decoded)
	}
	if err := decoded.DecodeBucket(BucketCounter, []byte(`"x"`)); err == nil {
		t.Fatalf("expected decode error for malformed counter")
	}
}
