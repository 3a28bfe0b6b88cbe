// Package reflector names Go types for use as message type tags and body
// type names. Lookups are cached.
package reflector

import (
	"reflect"
	"sync"
)

// maxCacheSize bounds the type cache. The cache is cleared when it is full.
const maxCacheSize = 1024

var (
	muCache sync.RWMutex
	cache   = make(map[reflect.Type]TypeInfo)
)

// TypeInfo holds metadata about a reflected type.
type TypeInfo struct {
	// Name is "pkg/path.TypeName" for named types declared in a package,
	// and the Go spelling ("string", "[]int", "map[string]any") otherwise.
	Name string
	// Short is the name without the package path.
	Short string
	Type  reflect.Type
}

// TypeInfoOf returns TypeInfo for the dynamic type of x.
func TypeInfoOf(x any) TypeInfo {
	return TypeInfoForType(reflect.TypeOf(x))
}

// TypeInfoFor returns TypeInfo for type parameter T.
func TypeInfoFor[T any]() TypeInfo {
	return TypeInfoForType(reflect.TypeFor[T]())
}

// TypeInfoForType returns TypeInfo for t. Pointers are unwrapped one level,
// so T and *T share a name. Safe for concurrent use.
func TypeInfoForType(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{}
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	muCache.RLock()
	ti, ok := cache[t]
	muCache.RUnlock()
	if ok {
		return ti
	}

	ti = TypeInfo{Name: nameOf(t), Short: shortOf(t), Type: t}

	muCache.Lock()
	defer muCache.Unlock()
	if existing, ok := cache[t]; ok {
		return existing
	}
	if len(cache) >= maxCacheSize {
		cache = make(map[reflect.Type]TypeInfo)
	}
	cache[t] = ti
	return ti
}

func nameOf(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

func shortOf(t reflect.Type) string {
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
