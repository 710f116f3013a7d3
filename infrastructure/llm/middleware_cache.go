package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// cachedLLM serves repeated identical requests from an in-memory cache.
// Judge calls are deterministic enough at low temperature that re-asking
// the same prompt wastes tokens.
type cachedLLM struct {
	next  CoreLLM
	cache *gocache.Cache
}

type cachedResponse struct {
	response  string
	tokensIn  int
	tokensOut int
}

// CacheMiddleware returns middleware that memoizes successful responses
// keyed by model, prompt, and options for the given TTL. Failures are
// never cached.
func CacheMiddleware(ttl time.Duration) Middleware {
	cache := gocache.New(ttl, 2*ttl)
	return func(next CoreLLM) CoreLLM {
		return &cachedLLM{next: next, cache: cache}
	}
}

func (c *cachedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	key := cacheKey(c.next.GetModel(), prompt, opts)
	if v, ok := c.cache.Get(key); ok {
		hit := v.(cachedResponse)
		return hit.response, hit.tokensIn, hit.tokensOut, nil
	}

	response, tokensIn, tokensOut, err := c.next.DoRequest(ctx, prompt, opts)
	if err != nil {
		return response, tokensIn, tokensOut, err
	}

	c.cache.SetDefault(key, cachedResponse{response, tokensIn, tokensOut})
	return response, tokensIn, tokensOut, nil
}

// cacheKey hashes model, prompt, and options into a stable key. Options
// are serialized in sorted order so map iteration does not split cache
// entries.
func cacheKey(model, prompt string, opts map[string]any) string {
	var b strings.Builder
	b.WriteString(model)
	b.WriteByte(0)
	b.WriteString(prompt)

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%c%s=%v", 0, k, opts[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func (c *cachedLLM) GetModel() string  { return c.next.GetModel() }
func (c *cachedLLM) SetModel(m string) { c.next.SetModel(m) }
