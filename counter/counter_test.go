package counter

import (
	"sync"
	"testing"
)

func TestStrong_SharedAlgebra(t *testing.T) {
	var c Strong

	if got := c.AddShared(); got != 1 {
		t.Fatalf("AddShared = %d, want 1", got)
	}
	if got := c.AddShared(); got != 2 {
		t.Fatalf("AddShared = %d, want 2", got)
	}
	if c.IsUnique() {
		t.Fatal("shared counter reports unique")
	}

	zero, wasUnique := c.ReleaseShared()
	if zero || wasUnique {
		t.Fatalf("ReleaseShared = (%v, %v), want (false, false)", zero, wasUnique)
	}
	zero, wasUnique = c.ReleaseShared()
	if !zero || wasUnique {
		t.Fatalf("ReleaseShared = (%v, %v), want (true, false)", zero, wasUnique)
	}
	if c.Load() != 0 {
		t.Fatalf("Load = %d, want 0", c.Load())
	}
}

func TestStrong_UniqueAlgebra(t *testing.T) {
	var c Strong

	c.AddUnique()
	if c.Load() != UniqueFlag|1 {
		t.Fatalf("Load = %#x, want %#x", c.Load(), UniqueFlag|1)
	}
	if !c.IsUnique() {
		t.Fatal("IsUnique = false")
	}
	if c.Count() != 1 {
		t.Fatalf("Count = %d, want 1", c.Count())
	}

	c.ReleaseUnique()
	if c.Load() != 0 {
		t.Fatalf("Load = %d after ReleaseUnique, want 0", c.Load())
	}
}

func TestStrong_UniqueToShared(t *testing.T) {
	var c Strong
	c.AddUnique()
	c.UniqueToShared()

	if c.IsUnique() {
		t.Fatal("still unique after conversion")
	}
	if c.Load() != 1 {
		t.Fatalf("Load = %d, want 1", c.Load())
	}
	if got := c.AddShared(); got != 2 {
		t.Fatalf("AddShared = %d, want 2", got)
	}
}

func TestStrong_TryUpgrade(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Strong)
		want  uint32
	}{
		{"dead object", func(*Strong) {}, 0},
		{"one owner", func(c *Strong) { c.AddShared() }, 2},
		{"three owners", func(c *Strong) { c.AddShared(); c.AddShared(); c.AddShared() }, 4},
		{"unique owner", func(c *Strong) { c.AddUnique() }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Strong
			tt.setup(&c)
			if got := c.TryUpgrade(); got != tt.want {
				t.Errorf("TryUpgrade = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStrong_ConcurrentConservation(t *testing.T) {
	var c Strong
	c.AddShared()

	const workers = 16
	const iters = 2000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				if j%2 == 0 {
					c.AddShared()
				} else if c.TryUpgrade() == 0 {
					t.Error("TryUpgrade failed while an owner is live")
					return
				}
				if zero, _ := c.ReleaseShared(); zero {
					t.Error("count reached zero while an owner is live")
					return
				}
			}
		}()
	}
	wg.Wait()

	if c.Load() != 1 {
		t.Fatalf("Load = %d, want 1", c.Load())
	}
	if zero, _ := c.ReleaseShared(); !zero {
		t.Fatal("final release did not reach zero")
	}
}

func TestStrong_UpgradeNeverResurrects(t *testing.T) {
	for round := 0; round < 200; round++ {
		var c Strong
		c.AddShared()

		var wg sync.WaitGroup
		var zeroes, upgrades int
		var mu sync.Mutex

		wg.Add(2)
		go func() {
			defer wg.Done()
			if zero, _ := c.ReleaseShared(); zero {
				mu.Lock()
				zeroes++
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			if c.TryUpgrade() != 0 {
				mu.Lock()
				upgrades++
				mu.Unlock()
				if zero, _ := c.ReleaseShared(); zero {
					mu.Lock()
					zeroes++
					mu.Unlock()
				}
			}
		}()
		wg.Wait()

		if zeroes != 1 {
			t.Fatalf("round %d: reached zero %d times (upgrades=%d)", round, zeroes, upgrades)
		}
		if c.TryUpgrade() != 0 {
			t.Fatalf("round %d: upgrade succeeded on dead counter", round)
		}
	}
}

func BenchmarkStrong_AddRelease(b *testing.B) {
	var c Strong
	c.AddShared()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.AddShared()
			c.ReleaseShared()
		}
	})
}
