/* Copyright © 2025-2026 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 */
package internal

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gregjones/httpcache"
)

func TestCachedClientOverridesNoCache(t *testing.T) {
	var hits atomic.Int32
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		fmt.Fprint(w, "ID\tName\tRating\tRnd1\n")
	}))
	defer srv.Close()

	client := newCachedClient(httpcache.NewMemoryCache(), http.DefaultTransport,
		5*time.Minute)

	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil || len(data) == 0 {
			t.Fatalf("unexpected body %q: %v", data, err)
		}
		if i > 0 && resp.Header.Get(httpcache.XFromCache) != "1" {
			t.Errorf("request %v not served from cache", i)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 origin hit, got %v", hits.Load())
	}
	if ua, _ := gotUA.Load().(string); ua != UserAgent {
		t.Errorf("user agent: got %q", ua)
	}
}
