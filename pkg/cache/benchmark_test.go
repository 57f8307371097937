package cache

import (
	"fmt"
	"strings"
	"testing"
)

func BenchmarkFileCacheGet(b *testing.B) {
	c := New(Options{MaxEntries: 10000})
	data := []byte(strings.Repeat("x", 100))
	for i := range 1000 {
		c.Put(fmt.Sprintf("/src/mod%d.py", i), data)
	}
	b.ResetTimer()
	for b.Loop() {
		c.Get("/src/mod999.py")
	}
}

func BenchmarkFileCachePutEvicting(b *testing.B) {
	c := New(Options{MaxEntries: 512, MaxBytes: 32 << 10})
	data := []byte(strings.Repeat("x", 100))
	b.ResetTimer()
	i := 0
	for b.Loop() {
		c.Put(fmt.Sprintf("/src/mod%d.py", i), data)
		i++
	}
}
