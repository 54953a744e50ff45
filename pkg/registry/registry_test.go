package registry

import (
	"fmt"
	"testing"
)

type entry struct {
	ID    string
	Label string
}

func TestBaseRegistry_Register(t *testing.T) {
	reg := NewBaseRegistry[entry]()

	tests := []struct {
		name    string
		key     string
		item    entry
		wantErr bool
	}{
		{
			name: "register valid entry",
			key:  "read_file",
			item: entry{ID: "read_file", Label: "Read File"},
		},
		{
			name:    "register with empty name",
			key:     "",
			item:    entry{Label: "nameless"},
			wantErr: true,
		},
		{
			name:    "register duplicate",
			key:     "read_file",
			item:    entry{ID: "read_file", Label: "Read File Again"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.key, tt.item)
			if (err != nil) != tt.wantErr {
				t.Errorf("Register() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBaseRegistry_GetAndRemove(t *testing.T) {
	reg := NewBaseRegistry[entry]()
	if err := reg.Register("write_file", entry{ID: "write_file"}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	got, ok := reg.Get("write_file")
	if !ok || got.ID != "write_file" {
		t.Errorf("Get() = %+v, %v; want registered entry", got, ok)
	}

	if _, ok := reg.Get("missing"); ok {
		t.Error("Get() found entry that was never registered")
	}

	if err := reg.Remove("write_file"); err != nil {
		t.Errorf("Remove() error = %v", err)
	}
	if err := reg.Remove("write_file"); err == nil {
		t.Error("Remove() of absent entry should fail")
	}
	if _, ok := reg.Get("write_file"); ok {
		t.Error("entry still present after Remove()")
	}
}

func TestBaseRegistry_Names(t *testing.T) {
	reg := NewBaseRegistry[entry]()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(name, entry{ID: name}); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}

	names := reg.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Names() length = %d, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestBaseRegistry_CountAndClear(t *testing.T) {
	reg := NewBaseRegistry[entry]()
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("tool-%d", i)
		if err := reg.Register(name, entry{ID: name}); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}

	if count := reg.Count(); count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}

	reg.Clear()
	if count := reg.Count(); count != 0 {
		t.Errorf("Count() after Clear() = %d, want 0", count)
	}
	if items := reg.List(); len(items) != 0 {
		t.Errorf("List() after Clear() length = %d, want 0", len(items))
	}
}

func TestBaseRegistry_Concurrency(t *testing.T) {
	reg := NewBaseRegistry[entry]()
	done := make(chan bool, 2)

	go func() {
		defer func() { done <- true }()
		for i := 0; i < 100; i++ {
			name := fmt.Sprintf("concurrent-%d", i)
			_ = reg.Register(name, entry{ID: name})
		}
	}()

	go func() {
		defer func() { done <- true }()
		for i := 0; i < 100; i++ {
			reg.Get(fmt.Sprintf("concurrent-%d", i))
			reg.Count()
			reg.List()
		}
	}()

	<-done
	<-done

	if count := reg.Count(); count != 100 {
		t.Errorf("Count() after concurrent registration = %d, want 100", count)
	}
}
