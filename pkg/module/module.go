// Package module defines the Python module descriptors produced by indexing
// and the registries that store them for a workspace.
package module

import (
	"path/filepath"
	"strings"
)

// MarkerFile designates a directory as a regular package.
const MarkerFile = "__init__.py"

// MarkerName is MarkerFile without its extension.
const MarkerName = "__init__"

// Kind classifies where a module comes from.
type Kind int

const (
	KindUnknown Kind = iota
	KindProject
	KindStdlib
	KindExternal
	KindNamespace
)

func (k Kind) String() string {
	switch k {
	case KindProject:
		return "project"
	case KindStdlib:
		return "stdlib"
	case KindExternal:
		return "external"
	case KindNamespace:
		return "namespace"
	default:
		return "unknown"
	}
}

// MarshalText encodes k by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a name written by MarshalText. Unknown names decode
// to KindUnknown.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = KindUnknown
	for _, c := range []Kind{KindProject, KindStdlib, KindExternal, KindNamespace} {
		if c.String() == string(text) {
			*k = c
		}
	}
	return nil
}

// NamespacePackage is the implicit package formed by same-named directories
// spread over several search roots.
type NamespacePackage struct {
	Directories []string `json:"directories" msgpack:"directories"`
}

// Module describes one importable unit.
type Module struct {
	Name          string `json:"name" msgpack:"name"`
	QualifiedName string `json:"qualified_name" msgpack:"qualified_name"`
	// Path is the source file; the marker file for packages, empty for
	// native modules and namespace packages.
	Path       string `json:"path,omitempty" msgpack:"path,omitempty"`
	IsPackage  bool   `json:"is_package" msgpack:"is_package"`
	IsExternal bool   `json:"is_external" msgpack:"is_external"`
	IsStdlib   bool   `json:"is_stdlib" msgpack:"is_stdlib"`
	IsNative   bool   `json:"is_native" msgpack:"is_native"`

	Namespace *NamespacePackage `json:"namespace,omitempty" msgpack:"namespace,omitempty"`
}

// IsNamespacePackage reports whether m was synthesized from several directories.
func (m *Module) IsNamespacePackage() bool {
	return m.Namespace != nil
}

// Kind returns the namespace m belongs to.
func (m *Module) Kind() Kind {
	switch {
	case m.IsNamespacePackage():
		return KindNamespace
	case m.IsStdlib:
		return KindStdlib
	case m.IsExternal:
		return KindExternal
	default:
		return KindProject
	}
}

// TopLevel returns the first component of the qualified name.
func (m *Module) TopLevel() string {
	return TopLevel(m.QualifiedName)
}

func (m *Module) String() string {
	if m.IsNamespacePackage() {
		return "PythonModule(" + m.Name + ", " + strings.Join(m.Namespace.Directories, ":") + ")"
	}
	return "PythonModule(" + m.Name + ", " + m.Path + ")"
}

// NewNamespace synthesizes a namespace package module.
func NewNamespace(name, qualifiedName string, dirs []string) *Module {
	return &Module{
		Name:          name,
		QualifiedName: qualifiedName,
		IsPackage:     true,
		Namespace:     &NamespacePackage{Directories: append([]string(nil), dirs...)},
	}
}

// TopLevel returns the first dot-separated component of a qualified name.
func TopLevel(qualifiedName string) string {
	if i := strings.IndexByte(qualifiedName, '.'); i >= 0 {
		return qualifiedName[:i]
	}
	return qualifiedName
}

// Join appends name to a breadcrumb.
func Join(breadcrumb, name string) string {
	if breadcrumb == "" {
		return name
	}
	return breadcrumb + "." + name
}

// IsDunder reports whether a basename is a reserved double-underscore name.
func IsDunder(basename string) bool {
	return len(basename) > 4 && strings.HasPrefix(basename, "__") && strings.HasSuffix(basename, "__")
}

// SplitExt splits a file name into its base and extension. Compiled
// extension modules keep only the part before the first dot, so
// "_speedups.cpython-36m-x86_64-linux-gnu.so" yields "_speedups".
func SplitExt(filename string) (string, string) {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	if IsNativeExt(ext) {
		if i := strings.IndexByte(base, '.'); i >= 0 {
			base = base[:i]
		}
	}
	return base, ext
}

// IsSourceExt reports whether ext is a Python source extension.
func IsSourceExt(ext string) bool {
	return ext == ".py"
}

// IsNativeExt reports whether ext denotes a compiled extension module.
func IsNativeExt(ext string) bool {
	return ext == ".so" || ext == ".pyd"
}

// IsBundleExt reports whether ext denotes a zipped package bundle whose
// interior is indexed as if it were unpacked.
func IsBundleExt(ext string) bool {
	return ext == ".egg"
}
