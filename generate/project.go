package generate

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jellydator/ttlcache/v3"
	"gopkg.in/yaml.v3"
)

// ProjectContext describes the project a document belongs to.
type ProjectContext struct {
	Root           string
	Name           string
	Listing        string            // top-level entries, space-separated
	Manifests      map[string]string // manifest label -> extracted summary
	PackageManager string            // detected from lockfiles
}

const (
	listingMaxBytes  = 512
	manifestMaxBytes = 512
)

// rootMarkers identify a project root when walking up from a document.
var rootMarkers = []string{
	".git",
	"go.mod",
	"package.json",
	"Cargo.toml",
	"pyproject.toml",
	"pubspec.yaml",
}

// ProjectCache is a TTL cache of ProjectContext entries keyed by project root.
type ProjectCache struct {
	cache *ttlcache.Cache[string, *ProjectContext]
}

// NewProjectCache creates a cache whose entries expire after ttl.
func NewProjectCache(ttl time.Duration) *ProjectCache {
	c := ttlcache.New[string, *ProjectContext](
		ttlcache.WithTTL[string, *ProjectContext](ttl),
		ttlcache.WithDisableTouchOnHit[string, *ProjectContext](),
	)
	go c.Start()
	return &ProjectCache{cache: c}
}

// Close stops the cache expiration loop.
func (pc *ProjectCache) Close() {
	pc.cache.Stop()
}

// Lookup returns the context of the project containing docPath, gathering
// and caching it on a miss. It returns nil when docPath is empty or no
// project root is found.
func (pc *ProjectCache) Lookup(docPath string) *ProjectContext {
	if docPath == "" {
		return nil
	}
	root := FindProjectRoot(filepath.Dir(docPath))
	if root == "" {
		return nil
	}
	if item := pc.cache.Get(root); item != nil {
		return item.Value()
	}
	proj := GatherProject(root)
	pc.cache.Set(root, proj, ttlcache.DefaultTTL)
	slog.Debug("gathered project context", "root", root, "manifests", len(proj.Manifests))
	return proj
}

// FindProjectRoot walks up from dir to the nearest directory containing a
// root marker. It returns "" if none is found.
func FindProjectRoot(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// GatherProject reads the listing and manifests of a project root.
func GatherProject(root string) *ProjectContext {
	proj := &ProjectContext{
		Root:      root,
		Name:      filepath.Base(root),
		Manifests: make(map[string]string),
	}

	if entries, err := os.ReadDir(root); err == nil {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		proj.Listing = truncate(strings.Join(names, " "), listingMaxBytes)
	}

	for _, m := range manifests {
		data, err := os.ReadFile(filepath.Join(root, m.file))
		if err != nil {
			continue
		}
		name, summary := m.extract(data)
		if name != "" && proj.Name == filepath.Base(root) {
			proj.Name = name
		}
		if summary != "" {
			proj.Manifests[m.label] = truncate(summary, manifestMaxBytes)
		}
	}

	proj.PackageManager = detectPackageManager(root)
	return proj
}

// manifests lists the files read from a project root, in priority order.
// extract returns the project name (if the manifest declares one) and a summary.
var manifests = []struct {
	file    string
	label   string
	extract func([]byte) (name, summary string)
}{
	{"go.mod", "go.mod", extractGoMod},
	{"package.json", "package.json scripts", extractPackageJSON},
	{"Cargo.toml", "Cargo.toml", extractCargo},
	{"pyproject.toml", "pyproject.toml", extractPyproject},
	{"pubspec.yaml", "pubspec.yaml", extractPubspec},
	{"pnpm-workspace.yaml", "pnpm workspace", extractPnpmWorkspace},
}

func extractGoMod(data []byte) (string, string) {
	var module, goVersion string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			module = strings.Trim(strings.TrimSpace(rest), `"`)
		} else if rest, ok := strings.CutPrefix(line, "go "); ok {
			goVersion = strings.TrimSpace(rest)
		}
	}
	var parts []string
	if module != "" {
		parts = append(parts, "module "+module)
	}
	if goVersion != "" {
		parts = append(parts, "go "+goVersion)
	}
	return module, strings.Join(parts, ", ")
}

func extractPackageJSON(data []byte) (string, string) {
	var pkg struct {
		Name    string            `json:"name"`
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", ""
	}
	keys := make([]string, 0, len(pkg.Scripts))
	for k := range pkg.Scripts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+pkg.Scripts[k])
	}
	return pkg.Name, strings.Join(parts, ", ")
}

type cargoToml struct {
	Package struct {
		Name    string `toml:"name"`
		Edition string `toml:"edition"`
	} `toml:"package"`
	Dependencies map[string]toml.Primitive `toml:"dependencies"`
}

func extractCargo(data []byte) (string, string) {
	var cargo cargoToml
	if _, err := toml.Decode(string(data), &cargo); err != nil {
		return "", ""
	}
	var parts []string
	if cargo.Package.Edition != "" {
		parts = append(parts, "edition "+cargo.Package.Edition)
	}
	if deps := sortedKeys(cargo.Dependencies); len(deps) > 0 {
		parts = append(parts, "deps: "+strings.Join(deps, " "))
	}
	return cargo.Package.Name, strings.Join(parts, ", ")
}

type pyprojectToml struct {
	Project struct {
		Name           string   `toml:"name"`
		RequiresPython string   `toml:"requires-python"`
		Dependencies   []string `toml:"dependencies"`
	} `toml:"project"`
}

func extractPyproject(data []byte) (string, string) {
	var py pyprojectToml
	if _, err := toml.Decode(string(data), &py); err != nil {
		return "", ""
	}
	var parts []string
	if py.Project.RequiresPython != "" {
		parts = append(parts, "python "+py.Project.RequiresPython)
	}
	if len(py.Project.Dependencies) > 0 {
		parts = append(parts, "deps: "+strings.Join(py.Project.Dependencies, " "))
	}
	return py.Project.Name, strings.Join(parts, ", ")
}

type pubspecYAML struct {
	Name         string         `yaml:"name"`
	Dependencies map[string]any `yaml:"dependencies"`
}

func extractPubspec(data []byte) (string, string) {
	var spec pubspecYAML
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return "", ""
	}
	deps := sortedKeys(spec.Dependencies)
	if len(deps) == 0 {
		return spec.Name, ""
	}
	return spec.Name, "deps: " + strings.Join(deps, " ")
}

func extractPnpmWorkspace(data []byte) (string, string) {
	var ws struct {
		Packages []string `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return "", ""
	}
	return "", strings.Join(ws.Packages, " ")
}

// lockfiles maps lockfile names to package manager names.
// Ordered by priority (more specific lockfiles first).
var lockfiles = []struct {
	file    string
	manager string
}{
	{"pnpm-lock.yaml", "pnpm"},
	{"yarn.lock", "yarn"},
	{"bun.lockb", "bun"},
	{"package-lock.json", "npm"},
	{"Cargo.lock", "cargo"},
	{"uv.lock", "uv"},
	{"poetry.lock", "poetry"},
	{"go.sum", "go"},
}

func detectPackageManager(root string) string {
	for _, lf := range lockfiles {
		if _, err := os.Stat(filepath.Join(root, lf.file)); err == nil {
			return lf.manager
		}
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncate truncates s to maxBytes, appending "..." if truncated.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes] + "..."
}
