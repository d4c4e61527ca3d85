package config

import (
	"os"
	"path/filepath"
	"testing"

	"dualstrusion-go/pkg/errors"
)

func TestLoadString(t *testing.T) {
	data := `
# machine profile
[dualstrusion]
machine: replicator
decimals = 4

[toolhead   left]
tool: T1 ; left extruder
`

	cfg, err := LoadString(data)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	if !cfg.HasSection("dualstrusion") {
		t.Error("expected [dualstrusion] section to exist")
	}
	if !cfg.HasSection("toolhead left") {
		t.Error("expected [toolhead left] section to exist")
	}
	if cfg.HasSection("nonexistent") {
		t.Error("expected [nonexistent] section to not exist")
	}

	main, err := cfg.GetSection("dualstrusion")
	if err != nil {
		t.Fatalf("GetSection(dualstrusion) failed: %v", err)
	}
	if main.GetName() != "dualstrusion" {
		t.Errorf("expected name 'dualstrusion', got '%s'", main.GetName())
	}

	machine, err := main.Get("machine")
	if err != nil {
		t.Fatalf("Get(machine) failed: %v", err)
	}
	if machine != "replicator" {
		t.Errorf("expected 'replicator', got '%s'", machine)
	}

	decimals, err := main.GetInt("decimals")
	if err != nil {
		t.Fatalf("GetInt(decimals) failed: %v", err)
	}
	if decimals != 4 {
		t.Errorf("expected 4, got %d", decimals)
	}

	head, _ := cfg.GetSection("toolhead left")
	tool, _ := head.Get("tool")
	if tool != "T1" {
		t.Errorf("expected inline comment stripped, got '%s'", tool)
	}

	if got := cfg.GetSectionNames(); len(got) != 2 || got[0] != "dualstrusion" {
		t.Errorf("unexpected section order %v", got)
	}
}

func TestLoadStringErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.ErrorCode
	}{
		{"empty header", "[ ]\n", errors.ErrConfigSection},
		{"include", "[include other.cfg]\n", errors.ErrConfigSection},
		{"bad line", "[a]\njust words\n", errors.ErrConfigOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestSectionGetters(t *testing.T) {
	data := `
[test]
string_val: hello
int_val: 42
float_val: 3.5
bool_yes: yes
bool_off: off
bad_int: 4.2
`
	cfg, err := LoadString(data)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	sec, _ := cfg.GetSection("test")

	if v, _ := sec.Get("string_val"); v != "hello" {
		t.Errorf("expected 'hello', got '%s'", v)
	}
	if v, _ := sec.Get("missing", "fallback"); v != "fallback" {
		t.Errorf("expected 'fallback', got '%s'", v)
	}
	if v, _ := sec.GetInt("INT_VAL"); v != 42 {
		t.Errorf("expected case-insensitive lookup 42, got %d", v)
	}
	if v, _ := sec.GetFloat("float_val"); v != 3.5 {
		t.Errorf("expected 3.5, got %f", v)
	}
	if v, _ := sec.GetBool("bool_yes"); !v {
		t.Error("expected yes to be true")
	}
	if v, _ := sec.GetBool("bool_off", true); v {
		t.Error("expected off to be false")
	}
	if _, err := sec.GetInt("bad_int"); !errors.Is(err, errors.ErrConfigType) {
		t.Errorf("expected CONFIG_TYPE, got %v", err)
	}
	if _, err := sec.GetBool("string_val"); !errors.Is(err, errors.ErrConfigType) {
		t.Errorf("expected CONFIG_TYPE, got %v", err)
	}
}

func TestGetChoice(t *testing.T) {
	cfg, _ := LoadString("[test]\nmode: TOM\n")
	sec, _ := cfg.GetSection("test")

	v, err := sec.GetChoice("mode", []string{"replicator", "tom"})
	if err != nil {
		t.Fatalf("GetChoice failed: %v", err)
	}
	if v != "tom" {
		t.Errorf("expected canonical 'tom', got '%s'", v)
	}

	_, err = sec.GetChoice("mode", []string{"generic"})
	if !errors.Is(err, errors.ErrConfigValidation) {
		t.Errorf("expected CONFIG_VALIDATION, got %v", err)
	}
}

func TestBoundsChecking(t *testing.T) {
	cfg, err := LoadString("[test]\nvalue: 50\ncount: 5\n")
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	sec, _ := cfg.GetSection("test")

	min := 0.0
	max := 100.0
	v, err := sec.GetFloatWithBounds("value", FloatBounds{MinVal: &min, MaxVal: &max})
	if err != nil {
		t.Fatalf("GetFloatWithBounds failed: %v", err)
	}
	if v != 50.0 {
		t.Errorf("expected 50.0, got %f", v)
	}

	min = 60.0
	if _, err := sec.GetFloatWithBounds("value", FloatBounds{MinVal: &min}); err == nil {
		t.Error("expected error for value below minimum")
	}

	max = 40.0
	if _, err := sec.GetFloatWithBounds("value", FloatBounds{MaxVal: &max}); err == nil {
		t.Error("expected error for value above maximum")
	}

	above := 50.0
	if _, err := sec.GetFloatWithBounds("value", FloatBounds{Above: &above}); err == nil {
		t.Error("expected error for value not above threshold")
	}

	lo, hi := 1, 3
	if _, err := sec.GetIntWithBounds("count", &lo, &hi); !errors.Is(err, errors.ErrConfigValidation) {
		t.Errorf("expected CONFIG_VALIDATION, got %v", err)
	}
}

func TestMissingOptionError(t *testing.T) {
	cfg, _ := LoadString("[test]\nexists: value\n")
	sec, _ := cfg.GetSection("test")

	_, err := sec.Get("missing")
	if err == nil {
		t.Fatal("expected error for missing option")
	}
	mergeErr, ok := err.(*errors.MergeError)
	if !ok {
		t.Fatalf("expected *errors.MergeError, got %T", err)
	}
	if mergeErr.Code != errors.ErrConfigOption {
		t.Errorf("expected CONFIG_OPTION, got %s", mergeErr.Code)
	}
	if mergeErr.Context["section"] != "test" || mergeErr.Context["option"] != "missing" {
		t.Errorf("unexpected context %v", mergeErr.Context)
	}

	if _, err := cfg.GetSection("nope"); !errors.Is(err, errors.ErrConfigSection) {
		t.Errorf("expected CONFIG_SECTION, got %v", err)
	}
}

func TestUnused(t *testing.T) {
	data := `
[used]
read: 1
typo: 2
[ignored]
x: 1
`
	cfg, _ := LoadString(data)
	sec, _ := cfg.GetSection("used")
	sec.GetInt("read")
	sec.GetInt("absent", 7)

	unused := cfg.Unused()
	if len(unused) != 2 {
		t.Fatalf("expected 2 unused entries, got %v", unused)
	}
	if unused[0].Code != errors.ErrConfigOption || unused[0].Context["option"] != "typo" {
		t.Errorf("unexpected first entry %v", unused[0])
	}
	if unused[1].Code != errors.ErrConfigSection || unused[1].Context["section"] != "ignored" {
		t.Errorf("unexpected second entry %v", unused[1])
	}
	if got := cfg.GetUnusedSections(); len(got) != 1 || got[0] != "ignored" {
		t.Errorf("expected [ignored], got %v", got)
	}
}

func TestLoadInclude(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	write("wipes.cfg", "[wipe left]\nx1: 1\n")
	main := write("profile.cfg", "[include wipes.cfg]\n[dualstrusion]\nmachine: tom\n[wipe left]\nx2: 2\n")

	cfg, err := Load(main)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	sec, err := cfg.GetSection("wipe left")
	if err != nil {
		t.Fatalf("GetSection failed: %v", err)
	}
	if !sec.HasOption("x1") || !sec.HasOption("x2") {
		t.Error("expected included and local options merged")
	}

	loop := write("loop.cfg", "[include loop.cfg]\n")
	if _, err := Load(loop); err == nil {
		t.Error("expected recursive include error")
	}
	missing := write("missing.cfg", "[include nothere.cfg]\n")
	if _, err := Load(missing); err == nil {
		t.Error("expected missing include error")
	}
}
