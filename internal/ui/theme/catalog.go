package theme

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// bundled holds the built-in themes keyed by Key(theme.Name).
var bundled = func() map[string]Theme {
	m := make(map[string]Theme)
	for _, t := range []Theme{CatppuccinMocha, CatppuccinLatte, Nord, Dracula, TokyoNight} {
		m[Key(t.Name)] = t
	}
	return m
}()

// Key turns a display name such as "Tokyo Night" into the form config
// files and the --theme flag use ("tokyo-night").
func Key(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

// Get returns a built-in theme by key or display name.
func Get(name string) (Theme, bool) {
	t, ok := bundled[Key(name)]
	return t, ok
}

// Keys returns the keys of the built-in themes, sorted.
func Keys() []string {
	keys := make([]string, 0, len(bundled))
	for k := range bundled {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Names returns the display names of the built-in themes in key order.
func Names() []string {
	keys := Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = bundled[k].Name
	}
	return names
}

// Default returns the theme used when none is configured.
func Default() Theme {
	return CatppuccinMocha
}

// CustomDir returns ~/.config/netscope/themes.
func CustomDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "netscope", "themes"), nil
}

// Resolve finds name among the built-in themes, then among the YAML
// themes in CustomDir. Unknown names get the default theme.
func Resolve(name string) Theme {
	if t, ok := Get(name); ok {
		return t
	}
	if dir, err := CustomDir(); err == nil {
		if t, ok := LoadCustomThemes(dir)[Key(name)]; ok {
			return t
		}
	}
	return Default()
}
