package typeinfer

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachingTypeLoader wraps a caller-supplied TypeLoader with a bounded LRU
// cache over property lookups. A worklist pass (Run) can revisit the same
// gate, and therefore the same (object type, property name) pair, many
// times while a loop's dominance-frontier phis stabilize; this avoids
// re-entering caller code for each revisit.
type CachingTypeLoader struct {
	inner TypeLoader
	props *lru.Cache[string, Type]
}

// NewCachingTypeLoader wraps inner with an LRU property-type cache holding
// up to size entries.
func NewCachingTypeLoader(inner TypeLoader, size int) (*CachingTypeLoader, error) {
	c, err := lru.New[string, Type](size)
	if err != nil {
		return nil, fmt.Errorf("typeinfer: creating property cache: %w", err)
	}
	return &CachingTypeLoader{inner: inner, props: c}, nil
}

func (c *CachingTypeLoader) ArrayElementType(h TypeHandle) Type {
	return c.inner.ArrayElementType(h)
}

func (c *CachingTypeLoader) FunctionReturnType(h TypeHandle) Type {
	return c.inner.FunctionReturnType(h)
}

func (c *CachingTypeLoader) PropertyType(h TypeHandle, name string) Type {
	key := propKey(h, name)
	if t, ok := c.props.Get(key); ok {
		return t
	}
	t := c.inner.PropertyType(h, name)
	c.props.Add(key, t)
	return t
}

func (c *CachingTypeLoader) UnionOf(members []Type) Type {
	return c.inner.UnionOf(members)
}

func (c *CachingTypeLoader) StringByIndex(index uint32) string {
	return c.inner.StringByIndex(index)
}

func propKey(h TypeHandle, name string) string {
	return fmt.Sprintf("%d:%s", h, name)
}
