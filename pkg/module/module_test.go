package module

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleKind(t *testing.T) {
	tests := []struct {
		name string
		mod  *Module
		want Kind
	}{
		{"project", &Module{QualifiedName: "app"}, KindProject},
		{"stdlib", &Module{QualifiedName: "os", IsStdlib: true, IsExternal: true}, KindStdlib},
		{"external", &Module{QualifiedName: "requests", IsExternal: true}, KindExternal},
		{"namespace", NewNamespace("plugins", "plugins", []string{"/a/plugins"}), KindNamespace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mod.Kind())
			assert.Equal(t, tt.want.String(), tt.mod.Kind().String())
		})
	}
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{KindUnknown, KindProject, KindStdlib, KindExternal, KindNamespace} {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var got Kind
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, k, got)
	}

	got := KindStdlib
	require.NoError(t, got.UnmarshalText([]byte("bogus")))
	assert.Equal(t, KindUnknown, got)
}

func TestNewNamespace_CopiesDirectories(t *testing.T) {
	dirs := []string{"/a/plugins", "/b/plugins"}
	m := NewNamespace("plugins", "plugins", dirs)
	dirs[0] = "/mutated"

	require.True(t, m.IsNamespacePackage())
	assert.Equal(t, []string{"/a/plugins", "/b/plugins"}, m.Namespace.Directories)
	assert.Empty(t, m.Path)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "pkg", TopLevel("pkg.sub.mod"))
	assert.Equal(t, "util", TopLevel("util"))
	assert.Equal(t, "mod", Join("", "mod"))
	assert.Equal(t, "pkg.mod", Join("pkg", "mod"))

	assert.True(t, IsDunder("__main__"))
	assert.True(t, IsDunder("__init__"))
	assert.False(t, IsDunder("__private"))
	assert.False(t, IsDunder("____"))

	base, ext := SplitExt("_speedups.cpython-36m-x86_64-linux-gnu.so")
	assert.Equal(t, "_speedups", base)
	assert.Equal(t, ".so", ext)

	base, ext = SplitExt("models.v2.py")
	assert.Equal(t, "models.v2", base)
	assert.Equal(t, ".py", ext)
}

func TestRegistry_PutOverwrites(t *testing.T) {
	r := NewRegistry(KindProject)
	r.Put(&Module{Name: "a", QualifiedName: "pkg.a", Path: "/one/pkg/a.py"})
	r.Put(&Module{Name: "a", QualifiedName: "pkg.a", Path: "/two/pkg/a.py"})

	m, ok := r.Get("pkg.a")
	require.True(t, ok)
	assert.Equal(t, "/two/pkg/a.py", m.Path)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, KindProject, r.Kind())
}

func TestRegistry_SortedViews(t *testing.T) {
	r := NewRegistry(KindExternal)
	for _, qn := range []string{"requests.models", "idna", "requests"} {
		r.Put(&Module{QualifiedName: qn})
	}

	assert.Equal(t, []string{"idna", "requests", "requests.models"}, r.Names())
	mods := r.Modules()
	require.Len(t, mods, 3)
	assert.Equal(t, "idna", mods[0].QualifiedName)
	assert.Equal(t, map[string]struct{}{"idna": {}, "requests": {}}, r.TopLevelNames())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(KindExternal)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				qn := fmt.Sprintf("pkg%d.mod%d", i, j)
				r.Put(&Module{QualifiedName: qn})
				_, _ = r.Get(qn)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 800, r.Len())
}

func TestPathIndex(t *testing.T) {
	p := NewPathIndex()
	m := &Module{QualifiedName: "pkg", Path: "/src/pkg/__init__.py"}
	p.Put(m.Path, m)
	p.Put("", &Module{QualifiedName: "native"})

	got, ok := p.Get("/src/pkg/__init__.py")
	require.True(t, ok)
	assert.Same(t, m, got)
	assert.Equal(t, 1, p.Len())
}
