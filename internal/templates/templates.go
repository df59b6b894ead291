// Package templates loads the workspace configs that tests create workspaces
// from, per infrastructure.
package templates

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/eclipse-che/che-e2e-harness/internal/config"
	"github.com/eclipse-che/che-e2e-harness/internal/models"
	srvErrors "github.com/eclipse-che/che-e2e-harness/pkg/errors"
)

// Template file names to create workspaces from.
const (
	Broken                    = "broken_workspace.json"
	Default                   = "default.json"
	DefaultWithGithubProjects = "default_with_github_projects.json"
	EclipsePHP                = "eclipse_php.json"
	EclipseNodeJS             = "eclipse_nodejs.json"
	EclipseCppGcc             = "eclipse_cpp_gcc.json"
	EclipseNodeJSYaml         = "eclipse_nodejs_with_yaml_ls.json"
	Python                    = "ubuntu_python.json"
	NodeJSWithJSONLS          = "nodejs_with_json_ls.json"
	Ubuntu                    = "ubuntu.json"
	UbuntuGo                  = "ubuntu_go.json"
	UbuntuJDK8                = "ubuntu_jdk8.json"
	UbuntuLSP                 = "ubuntu_with_c_sharp_lsp.json"
	ApacheCamel               = "spring_boot_with_apache_camel_ls.json"
	UbuntuMinimal             = "ubuntu_minimal.yaml"
)

const rootDir = "workspace"

//go:embed workspace
var embedded embed.FS

// Loader reads workspace templates for one infrastructure. Parsed templates
// are cached; every Load returns a private copy.
type Loader struct {
	fsys fs.FS
	dir  string

	mu    sync.Mutex
	cache map[string]models.WorkspaceConfig
}

type LoaderOption func(*Loader)

// WithFS reads templates from fsys instead of the embedded set. fsys must
// have the same workspace/<infrastructure>/ layout.
func WithFS(fsys fs.FS) LoaderOption {
	return func(l *Loader) {
		l.fsys = fsys
	}
}

func NewLoader(infra config.Infrastructure, opts ...LoaderOption) *Loader {
	l := &Loader{
		fsys:  embedded,
		dir:   path.Join(rootDir, infra.TemplateDirectory()),
		cache: make(map[string]models.WorkspaceConfig),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the template config called name.
func (l *Loader) Load(name string) (models.WorkspaceConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cfg, ok := l.cache[name]; ok {
		return cfg.Clone(), nil
	}

	data, err := fs.ReadFile(l.fsys, path.Join(l.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.WorkspaceConfig{}, srvErrors.NewResourceNotFoundError("workspace template", path.Join(l.dir, name))
		}
		return models.WorkspaceConfig{}, fmt.Errorf("failed to read template %q: %w", name, err)
	}

	var cfg models.WorkspaceConfig
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return models.WorkspaceConfig{}, fmt.Errorf("failed to parse template %q: %w", name, err)
	}

	l.cache[name] = cfg
	return cfg.Clone(), nil
}

// Names lists the templates available for the infrastructure.
func (l *Loader) Names() ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates in %q: %w", l.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
