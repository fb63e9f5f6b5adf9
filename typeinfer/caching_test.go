package typeinfer

import "testing"

type countingLoader struct {
	calls int
}

func (c *countingLoader) ArrayElementType(TypeHandle) Type   { return Any() }
func (c *countingLoader) FunctionReturnType(TypeHandle) Type { return Any() }
func (c *countingLoader) PropertyType(h TypeHandle, name string) Type {
	c.calls++
	return Number()
}
func (c *countingLoader) UnionOf(members []Type) Type   { return union(members) }
func (c *countingLoader) StringByIndex(idx uint32) string { return "" }

func TestCachingTypeLoaderCachesPropertyType(t *testing.T) {
	inner := &countingLoader{}
	cache, err := NewCachingTypeLoader(inner, 16)
	if err != nil {
		t.Fatalf("NewCachingTypeLoader failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		got := cache.PropertyType(TypeHandle(1), "length")
		if !got.IsNumber() {
			t.Fatalf("expected Number, got %s", got)
		}
	}

	if inner.calls != 1 {
		t.Errorf("expected the inner loader to be queried once, got %d calls", inner.calls)
	}

	cache.PropertyType(TypeHandle(1), "size")
	if inner.calls != 2 {
		t.Errorf("expected a distinct property name to miss the cache, got %d calls", inner.calls)
	}
}
