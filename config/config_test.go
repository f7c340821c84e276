package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Assembler.Registers != 16 {
		t.Errorf("Expected Registers=16, got %d", cfg.Assembler.Registers)
	}
	if cfg.Assembler.FileDescriptors != 16 {
		t.Errorf("Expected FileDescriptors=16, got %d", cfg.Assembler.FileDescriptors)
	}
	if cfg.Assembler.MaxMacroDepth != 32 {
		t.Errorf("Expected MaxMacroDepth=32, got %d", cfg.Assembler.MaxMacroDepth)
	}
	if cfg.Assembler.MaxLabels != 4096 {
		t.Errorf("Expected MaxLabels=4096, got %d", cfg.Assembler.MaxLabels)
	}

	if cfg.Interpreter.StackInitialCapacity != 256 {
		t.Errorf("Expected StackInitialCapacity=256, got %d", cfg.Interpreter.StackInitialCapacity)
	}
	if cfg.Interpreter.StackGrowthFactor != 1.5 {
		t.Errorf("Expected StackGrowthFactor=1.5, got %v", cfg.Interpreter.StackGrowthFactor)
	}
	if cfg.Interpreter.MaxCallDepth != 4096 {
		t.Errorf("Expected MaxCallDepth=4096, got %d", cfg.Interpreter.MaxCallDepth)
	}

	if !cfg.Display.ColorOutput {
		t.Error("Expected ColorOutput=true")
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("GetConfigPath returned empty string")
	}

	if filepath.Base(path) != "config.toml" {
		t.Errorf("Expected path to end with config.toml, got %s", path)
	}

	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "config.toml" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}

	case "darwin", "linux":
		dir := filepath.Dir(path)
		if filepath.Base(dir) != "bbx" && path != "config.toml" {
			t.Errorf("Expected path in bbx directory or fallback, got %s", path)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.toml")

	cfg := DefaultConfig()
	cfg.Assembler.Registers = 32
	cfg.Assembler.MaxMacroDepth = 8
	cfg.Interpreter.StackGrowthFactor = 2.0
	cfg.Display.ColorOutput = false

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Assembler.Registers != 32 {
		t.Errorf("Expected Registers=32, got %d", loaded.Assembler.Registers)
	}
	if loaded.Assembler.MaxMacroDepth != 8 {
		t.Errorf("Expected MaxMacroDepth=8, got %d", loaded.Assembler.MaxMacroDepth)
	}
	if loaded.Interpreter.StackGrowthFactor != 2.0 {
		t.Errorf("Expected StackGrowthFactor=2.0, got %v", loaded.Interpreter.StackGrowthFactor)
	}
	if loaded.Display.ColorOutput {
		t.Error("Expected ColorOutput=false")
	}
}

func TestLoadNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.toml")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom should not error on non-existent file: %v", err)
	}

	if cfg.Assembler.Registers != 16 {
		t.Error("Expected default config when file doesn't exist")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.toml")

	invalidTOML := `
[assembler]
registers = "not a number"
`
	if err := os.WriteFile(configPath, []byte(invalidTOML), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	_, err := LoadFrom(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid TOML")
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	tempDir := t.TempDir()

	configPath := filepath.Join(tempDir, "subdir1", "subdir2", "config.toml")

	cfg := DefaultConfig()
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	dir := filepath.Dir(configPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("Parent directories were not created")
	}
}
