package config

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestStoreSetTranslatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s := NewStore(path, Default())

	if s.Translate() {
		t.Fatal("Translate() = true on a default store")
	}
	if err := s.SetTranslate(true); err != nil {
		t.Fatalf("SetTranslate() error = %v", err)
	}
	if !s.Translate() {
		t.Error("Translate() = false after SetTranslate(true)")
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reloaded.Recognition.Translate {
		t.Error("translate mode was not persisted")
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore("", Default())

	c := s.Get()
	c.Recognition.CustomTerms[0] = "mutated"
	c.Hotkey.Key = "f1"

	again := s.Get()
	if again.Recognition.CustomTerms[0] == "mutated" {
		t.Error("Get() shares the custom terms slice with the store")
	}
	if again.Hotkey.Key != "f9" {
		t.Errorf("Hotkey.Key = %q, want f9", again.Hotkey.Key)
	}
}

func TestStoreInMemoryUpdate(t *testing.T) {
	s := NewStore("", Default())
	if err := s.Update(func(c *Config) { c.Recognition.BeamSize = 1 }); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := s.Get().Recognition.BeamSize; got != 1 {
		t.Errorf("BeamSize = %d, want 1", got)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore("", Default())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(on bool) {
			defer wg.Done()
			_ = s.SetTranslate(on)
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			cfg := s.Get()
			_ = cfg.ActiveModel()
		}()
	}
	wg.Wait()
}
