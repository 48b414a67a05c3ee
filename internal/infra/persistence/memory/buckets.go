package memory

import (
	"encoding/json"
	"fmt"
)

// Bucket names used by the durable stores, one row per bucket.
const (
	BucketKitties = "kitties"
	BucketOwned   = "owned"
	BucketCounter = "counter"
)

// Buckets lists the snapshot buckets in persistence order.
var Buckets = []string{BucketKitties, BucketOwned, BucketCounter}

// EncodeBuckets splits a snapshot into JSON payloads keyed by bucket name.
func EncodeBuckets(s Snapshot) (map[string][]byte, error) {
	out := make(map[string][]byte, len(Buckets))
	for _, bucket := range Buckets {
		var (
			data []byte
			err  error
		)
		switch bucket {
		case BucketKitties:
			data, err = json.Marshal(s.Kitties)
		case BucketOwned:
			data, err = json.Marshal(s.Owned)
		case BucketCounter:
			data, err = json.Marshal(s.Count)
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBucket fills the snapshot field backing bucket. Unknown buckets are
// ignored so older databases with extra rows still load.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var target any
	switch bucket {
	case BucketKitties:
		target = &s.Kitties
	case BucketOwned:
		target = &s.Owned
	case BucketCounter:
		target = &s.Count
	default:
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
