package theme

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKey(t *testing.T) {
	tests := map[string]string{
		"  Catppuccin Mocha  ": "catppuccin-mocha",
		"Tokyo   Night":        "tokyo-night",
		"nord":                 "nord",
	}
	for in, want := range tests {
		if got := Key(in); got != want {
			t.Errorf("Key(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeysAreResolvable(t *testing.T) {
	keys := Keys()
	want := []string{"catppuccin-latte", "catppuccin-mocha", "dracula", "nord", "tokyo-night"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i, k := range keys {
		if k != want[i] {
			t.Fatalf("Keys()[%d] = %q, want %q", i, k, want[i])
		}
		if _, ok := Get(k); !ok {
			t.Errorf("Get(%q) found nothing", k)
		}
	}
}

func TestGetBuiltInTheme(t *testing.T) {
	got, ok := Get("  catppuccin mocha ")
	if !ok {
		t.Fatal("expected built-in theme to be found")
	}
	if got.Name != "Catppuccin Mocha" {
		t.Fatalf("theme name = %q, want Catppuccin Mocha", got.Name)
	}
}

func TestNamesSortedAndComplete(t *testing.T) {
	names := Names()
	want := []string{"Catppuccin Latte", "Catppuccin Mocha", "Dracula", "Nord", "Tokyo Night"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestEveryThemeHasSyntaxStyle(t *testing.T) {
	for _, key := range Keys() {
		if th, _ := Get(key); th.Syntax == "" {
			t.Errorf("theme %s has no syntax style", key)
		}
	}
}

func TestResolveBuiltInTheme(t *testing.T) {
	if got := Resolve("dracula"); got.Name != "Dracula" {
		t.Fatalf("Resolve(dracula) returned %q, want Dracula", got.Name)
	}
}

func TestResolveCustomThemeFromHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	themesDir := filepath.Join(home, ".config", "netscope", "themes")
	if err := os.MkdirAll(themesDir, 0755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}

	yaml := "name: Ocean Breeze\nbase: \"#001122\"\ntext: \"#ffffff\"\n"
	path := filepath.Join(themesDir, "ocean-breeze.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	got := Resolve("ocean breeze")
	if got.Name != "Ocean Breeze" {
		t.Fatalf("Resolve(custom) name = %q, want Ocean Breeze", got.Name)
	}
	if got.Base != "#001122" {
		t.Fatalf("Resolve(custom) base = %q, want #001122", got.Base)
	}
	if got.Green != CatppuccinMocha.Green {
		t.Fatalf("unset colors should fall back to the default, got %q", got.Green)
	}
	if got.Syntax != CatppuccinMocha.Syntax {
		t.Fatalf("Syntax = %q, want default", got.Syntax)
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if got := Resolve("not-a-real-theme"); got.Name != CatppuccinMocha.Name {
		t.Fatalf("Resolve(unknown) = %q, want %q", got.Name, CatppuccinMocha.Name)
	}
}

func TestLoadCustomThemeNameFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forest.yml")
	if err := os.WriteFile(path, []byte("green: \"#00ff00\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadCustomTheme(path)
	if err != nil {
		t.Fatalf("LoadCustomTheme() error: %v", err)
	}
	if got.Name != "forest" || got.Green != "#00ff00" {
		t.Fatalf("got %+v", got)
	}
}

func TestLoadCustomThemesSkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "good.yaml"), []byte("name: Good\n"), 0644)
	os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: [\n"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	got := LoadCustomThemes(dir)
	if len(got) != 1 {
		t.Fatalf("LoadCustomThemes() = %d themes, want 1", len(got))
	}
	if _, ok := got["good"]; !ok {
		t.Fatal("good theme not loaded")
	}
}

func TestStatusColor(t *testing.T) {
	th := CatppuccinMocha
	tests := map[int]string{
		0:   string(th.Muted),
		200: string(th.Green),
		304: string(th.Blue),
		404: string(th.Yellow),
		101: string(th.Muted),
		503: string(th.Red),
	}
	for code, want := range tests {
		if got := string(th.StatusColor(code)); got != want {
			t.Errorf("StatusColor(%d) = %s, want %s", code, got, want)
		}
	}
}

func TestMethodColor(t *testing.T) {
	th := Nord
	if th.MethodColor("GET") != th.Green || th.MethodColor("DELETE") != th.Red {
		t.Fatal("unexpected method colors")
	}
	if th.MethodColor("PATCH") != th.Peach || th.MethodColor("OPTIONS") != th.Lavender {
		t.Fatal("unexpected accents for PATCH/OPTIONS")
	}
	if th.MethodColor("BREW") != th.Text {
		t.Fatal("unknown methods should use the text color")
	}
}
