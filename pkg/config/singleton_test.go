package config

import (
	"sync"
	"testing"
)

func resetGlobal() {
	configMutex.Lock()
	globalConfig = nil
	globalPath = ""
	configMutex.Unlock()
	initOnce = sync.Once{}
}

func TestInitialize(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	path := writeConfig(t, minimalConfig)
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("GetConfig() returned nil")
	}
	if cfg.Export.Entity != "account" {
		t.Errorf("Entity = %q", cfg.Export.Entity)
	}

	// second call is ignored
	if err := Initialize(writeConfig(t, "not: [valid")); err != nil {
		t.Errorf("second Initialize() error = %v", err)
	}
	if GetConfig() != cfg {
		t.Error("second Initialize() replaced the configuration")
	}
}

func TestReloadConfig_KeepsPreviousOnError(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	path := writeConfig(t, minimalConfig)
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	before := GetConfig()

	if _, err := ReloadConfig(writeConfig(t, "export:\n  page_size: -1\n")); err == nil {
		t.Fatal("expected reload error")
	}
	if GetConfig() != before {
		t.Error("failed reload replaced the configuration")
	}

	cfg, err := ReloadConfig("")
	if err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if GetConfig() != cfg {
		t.Error("successful reload did not replace the configuration")
	}
}

func TestReloadConfig_NoPath(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	if _, err := ReloadConfig(""); err == nil {
		t.Fatal("expected error without a path")
	}
}

func TestMustGetConfig_Panics(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustGetConfig()
}

func TestSetConfig(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	cfg := Default()
	SetConfig(cfg)
	if GetConfig() != cfg {
		t.Error("SetConfig() did not replace the configuration")
	}
}
