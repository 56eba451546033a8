package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"pgregory.net/rapid"
)

// Property: inserting more distinct keys than capacity keeps size bounded
// and evicts exactly the oldest inserts.
func TestProperty_CapacityBound(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("size never exceeds capacity and oldest keys are evicted first", prop.ForAll(
		func(capacity int, extra int) bool {
			m := NewMemory(MemoryConfig{Capacity: capacity})
			defer m.Close()

			total := capacity + extra
			for i := 0; i < total; i++ {
				m.Set(fmt.Sprintf("k%d", i), i)
				if m.Len() > capacity {
					t.Logf("size %d exceeds capacity %d after %d inserts", m.Len(), capacity, i+1)
					return false
				}
			}

			for i := 0; i < total; i++ {
				_, ok := m.Get(fmt.Sprintf("k%d", i))
				if evicted := i < extra; ok == evicted {
					t.Logf("key k%d: present=%v, expected evicted=%v", i, ok, evicted)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 64),
		gen.IntRange(1, 64),
	))

	properties.TestingRun(t)
}

// Property: a value written is read back unchanged before it expires.
func TestProperty_MemoryRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("set followed by get returns the same value", prop.ForAll(
		func(key string, value string, ttlSeconds int) bool {
			m := NewMemory(MemoryConfig{Capacity: 8})
			defer m.Close()

			m.SetWithTTL(key, value, time.Duration(ttlSeconds)*time.Second)
			got, ok := m.Get(key)
			return ok && got == value
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.IntRange(1, 3600),
	))

	properties.TestingRun(t)
}

// modelEntry 参照模型中的条目
type modelEntry struct {
	key       string
	value     int
	expiresAt time.Time
}

// TestMemory_StateMachine 将 Memory 与一个朴素的切片模型对比，
// 任意操作序列之后两者的内容与最近使用顺序必须一致。
func TestMemory_StateMachine(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 5).Draw(t, "capacity")
		clock := newFakeClock()
		m := NewMemory(MemoryConfig{Capacity: capacity}, WithClock(clock.Now))
		defer m.Close()

		var model []modelEntry // 下标 0 为最近使用
		keyGen := rapid.SampledFrom([]string{"a", "b", "c", "d", "e", "f", "g"})

		find := func(key string) int {
			for i, e := range model {
				if e.key == key {
					return i
				}
			}
			return -1
		}
		removeAt := func(i int) {
			model = append(model[:i], model[i+1:]...)
		}

		t.Repeat(map[string]func(*rapid.T){
			"set": func(t *rapid.T) {
				key := keyGen.Draw(t, "key")
				value := rapid.Int().Draw(t, "value")
				ttl := time.Duration(rapid.IntRange(1, 5).Draw(t, "ttl")) * time.Second

				m.SetWithTTL(key, value, ttl)

				entry := modelEntry{key: key, value: value, expiresAt: clock.Now().Add(ttl)}
				if i := find(key); i >= 0 {
					removeAt(i)
				} else if len(model) >= capacity {
					model = model[:len(model)-1]
				}
				model = append([]modelEntry{entry}, model...)
			},
			"get": func(t *rapid.T) {
				key := keyGen.Draw(t, "key")
				got, ok := m.Get(key)

				i := find(key)
				switch {
				case i < 0:
					if ok {
						t.Fatalf("get %q: unexpected hit", key)
					}
				case clock.Now().After(model[i].expiresAt):
					if ok {
						t.Fatalf("get %q: expired entry returned", key)
					}
					removeAt(i)
				default:
					if !ok || got != model[i].value {
						t.Fatalf("get %q: got (%v, %v), want %v", key, got, ok, model[i].value)
					}
					e := model[i]
					removeAt(i)
					model = append([]modelEntry{e}, model...)
				}
			},
			"delete": func(t *rapid.T) {
				key := keyGen.Draw(t, "key")
				removed := m.Delete(key)
				i := find(key)
				if removed != (i >= 0) {
					t.Fatalf("delete %q: removed=%v, model has=%v", key, removed, i >= 0)
				}
				if i >= 0 {
					removeAt(i)
				}
			},
			"advance": func(t *rapid.T) {
				clock.Advance(time.Duration(rapid.IntRange(0, 3000).Draw(t, "ms")) * time.Millisecond)
			},
			"cleanup": func(t *rapid.T) {
				m.Cleanup()
				now := clock.Now()
				kept := model[:0]
				for _, e := range model {
					if !now.After(e.expiresAt) {
						kept = append(kept, e)
					}
				}
				model = kept
			},
			"clear": func(t *rapid.T) {
				m.Clear()
				model = nil
			},
			"": func(t *rapid.T) {
				requireConsistent(t, m)
				keys := m.Keys()
				if len(keys) != len(model) {
					t.Fatalf("keys %v, model has %d entries", keys, len(model))
				}
				for i, e := range model {
					if keys[i] != e.key {
						t.Fatalf("recency order %v differs from model at %d (%q)", keys, i, e.key)
					}
				}
			},
		})
	})
}
