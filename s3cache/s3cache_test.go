/* Copyright (c) 2025-2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file in the current directory for license terms
 */
package s3cache

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/gregjones/httpcache/test"
)

const testBucket = "bopmatic-clubratings-prod-webcache"

func TestS3Cache(t *testing.T) {
	cache := New(context.Background(), testBucket, false, true)
	err := cache.Init()
	if err != nil {
		t.Skip(fmt.Sprintf("Skipping test due to lack of access to %v: %v",
			testBucket, err))
	}

	test.Cache(t, cache)
}

func TestS3CacheWithGzip(t *testing.T) {
	cache := New(context.Background(), testBucket, true, true)
	err := cache.Init()
	if err != nil {
		t.Skip(fmt.Sprintf("Skipping test due to lack of access to %v: %v",
			testBucket, err))
	}

	test.Cache(t, cache)
}

func TestFakeS3Cache(t *testing.T) {
	srv := newFakeS3(t)
	for _, gz := range []bool{false, true} {
		t.Run(fmt.Sprintf("gzip=%v", gz), func(t *testing.T) {
			cache := New(context.Background(), fakeBucket, gz, true)
			cache.Client = srv.client()
			test.Cache(t, cache)
		})
	}
}

func TestCacheKeyToObjectKey(t *testing.T) {
	plain := New(context.Background(), testBucket, false, false)
	gz := New(context.Background(), testBucket, true, false)

	k1 := plain.cacheKeyToObjectKey("https://example.com/a")
	k2 := plain.cacheKeyToObjectKey("https://example.com/b")
	if k1 == k2 {
		t.Fatalf("distinct keys map to the same object")
	}
	if !strings.HasPrefix(k1, "/s3cache/") || len(k1) != len("/s3cache/")+32 {
		t.Errorf("unexpected object key %v", k1)
	}
	if gz.cacheKeyToObjectKey("https://example.com/a") != k1+".gz" {
		t.Errorf("gzip keys should carry .gz suffix")
	}
}
