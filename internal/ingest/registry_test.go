package ingest

import "testing"

func TestLoadRegistryEmbedded(t *testing.T) {
	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.Sources) == 0 {
		t.Fatal("expected embedded sources")
	}

	for _, src := range reg.Sources {
		if src.ID == "" || src.Name == "" {
			t.Errorf("source missing id or name: %+v", src)
		}
		if len(src.Seeds) == 0 {
			t.Errorf("source %s has no seed URLs", src.ID)
		}
	}
}

func TestGenericConfig(t *testing.T) {
	cfg := GenericConfig("My Portal", "https://example.org/calls")

	if cfg.Name != "My Portal" {
		t.Errorf("name = %q", cfg.Name)
	}
	if len(cfg.Seeds) != 1 || cfg.Seeds[0] != "https://example.org/calls" {
		t.Errorf("seeds = %v", cfg.Seeds)
	}
	if cfg.Selectors.Container == "" {
		t.Error("generic config needs a fallback container selector")
	}
}
