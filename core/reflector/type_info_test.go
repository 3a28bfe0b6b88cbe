package reflector

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name string
}

type anotherStruct struct {
	Value int
}

const pkg = "github.com/mmehali/actors/core/reflector"

func TestTypeInfoOf(t *testing.T) {
	for _, tc := range []struct {
		name  string
		value any
		want  string
		short string
	}{
		{"struct", testStruct{}, pkg + ".testStruct", "testStruct"},
		{"pointer", &testStruct{}, pkg + ".testStruct", "testStruct"},
		{"string", "hi", "string", "string"},
		{"int", 42, "int", "int"},
		{"slice", []int{1}, "[]int", "[]int"},
		{"map", map[string]any{}, "map[string]interface {}", "map[string]interface {}"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ti := TypeInfoOf(tc.value)
			assert.Equal(t, tc.want, ti.Name)
			assert.Equal(t, tc.short, ti.Short)
			assert.NotEqual(t, reflect.Pointer, ti.Type.Kind())
		})
	}
}

func TestTypeInfoFor(t *testing.T) {
	require.Equal(t, TypeInfoOf(testStruct{}), TypeInfoFor[testStruct]())
	require.Equal(t, TypeInfoOf(testStruct{}), TypeInfoFor[*testStruct]())
	require.Equal(t, "string", TypeInfoFor[string]().Name)
}

func TestTypeInfoForType(t *testing.T) {
	rt := reflect.TypeFor[testStruct]()
	ti := TypeInfoForType(rt)
	require.Equal(t, pkg+".testStruct", ti.Name)
	require.Equal(t, rt, ti.Type)

	require.Equal(t, TypeInfo{}, TypeInfoForType(nil))
	require.Equal(t, TypeInfo{}, TypeInfoOf(nil))
}

func TestConcurrentAccess(t *testing.T) {
	const goroutines = 100
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				_ = TypeInfoOf(testStruct{})
				_ = TypeInfoFor[anotherStruct]()
				_ = TypeInfoForType(reflect.TypeFor[string]())
			}
		}()
	}

	wg.Wait()
}

func TestCache(t *testing.T) {
	muCache.Lock()
	cache = make(map[reflect.Type]TypeInfo)
	muCache.Unlock()

	ti1 := TypeInfoOf(&testStruct{})
	ti2 := TypeInfoOf(testStruct{})
	require.Equal(t, ti1, ti2)

	muCache.RLock()
	defer muCache.RUnlock()
	require.Len(t, cache, 1)
	_, ok := cache[reflect.TypeFor[testStruct]()]
	require.True(t, ok)
}
