// Package configloader defines the ConfigLoader contract: the router's
// external collaborator for org-scoped prompt and resource overrides, plus
// prompt template substitution.
package configloader

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/mcp-vgateway/internal/orgcontext"
	"github.com/stacklok/mcp-vgateway/pkg/logger"
)

// Message is one entry of a PromptTemplate's message list.
type Message struct {
	Role    string `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

// PromptTemplate is an org-scoped prompt override.
type PromptTemplate struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description,omitempty"`
	Messages    []Message `yaml:"messages" json:"messages"`
}

// ResourceDefinition is an org-scoped resource override.
type ResourceDefinition struct {
	URI      string `yaml:"uri" json:"uri"`
	Name     string `yaml:"name" json:"name"`
	MimeType string `yaml:"mimeType" json:"mimeType,omitempty"`
}

//go:generate mockgen -destination=mocks/mock_configloader.go -package=mocks -source=configloader.go ConfigLoader

// ConfigLoader is the router's external collaborator for org-scoped prompt
// and resource overrides. Implementations must be safe for concurrent use.
type ConfigLoader interface {
	GetPrompt(ctx context.Context, rc orgcontext.RequestContext, name string) (*PromptTemplate, bool)
	GetResource(ctx context.Context, rc orgcontext.RequestContext, uri string) (*ResourceDefinition, bool)
	ListPrompts(ctx context.Context, rc orgcontext.RequestContext) []PromptTemplate
	ListResources(ctx context.Context, rc orgcontext.RequestContext) []ResourceDefinition
	Invalidate(rc orgcontext.RequestContext)
}

// orgCatalog is the on-disk shape for one organisation's overrides.
type orgCatalog struct {
	Prompts   []PromptTemplate     `yaml:"prompts"`
	Resources []ResourceDefinition `yaml:"resources"`
}

// FileLoader is the default ConfigLoader: one YAML file per organisation
// under a root directory, named `<organizationId>.yaml`, cached in memory
// until Invalidate is called.
type FileLoader struct {
	root string

	mu    sync.RWMutex
	cache map[string]*orgCatalog // organizationId -> catalog
}

// NewFileLoader builds a FileLoader rooted at dir.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{root: dir, cache: make(map[string]*orgCatalog)}
}

func (f *FileLoader) catalogFor(rc orgcontext.RequestContext) *orgCatalog {
	orgID := ""
	if rc.Organization != nil {
		orgID = rc.Organization.ID
	}

	f.mu.RLock()
	cached, ok := f.cache[orgID]
	f.mu.RUnlock()
	if ok {
		return cached
	}

	cat := f.loadFromDisk(orgID)

	f.mu.Lock()
	f.cache[orgID] = cat
	f.mu.Unlock()
	return cat
}

func (f *FileLoader) loadFromDisk(orgID string) *orgCatalog {
	if orgID == "" || f.root == "" {
		return &orgCatalog{}
	}
	path := fmt.Sprintf("%s/%s.yaml", f.root, orgID)
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("configloader: failed to read %s: %v", path, err)
		}
		return &orgCatalog{}
	}
	var cat orgCatalog
	if err := yaml.Unmarshal(b, &cat); err != nil {
		logger.Warnf("configloader: failed to parse %s: %v", path, err)
		return &orgCatalog{}
	}
	return &cat
}

// GetPrompt resolves a single prompt override by name. The template is
// returned as stored, with no substitution applied; callers render it with
// RenderPrompt.
func (f *FileLoader) GetPrompt(_ context.Context, rc orgcontext.RequestContext, name string) (*PromptTemplate, bool) {
	cat := f.catalogFor(rc)
	for i := range cat.Prompts {
		if cat.Prompts[i].Name == name {
			p := cat.Prompts[i]
			return &p, true
		}
	}
	return nil, false
}

// GetResource resolves a single resource override by URI.
func (f *FileLoader) GetResource(_ context.Context, rc orgcontext.RequestContext, uri string) (*ResourceDefinition, bool) {
	cat := f.catalogFor(rc)
	for i := range cat.Resources {
		if cat.Resources[i].URI == uri {
			r := cat.Resources[i]
			return &r, true
		}
	}
	return nil, false
}

// ListPrompts returns every prompt override for rc's organisation, sorted
// by name so list fan-out de-duplication is deterministic.
func (f *FileLoader) ListPrompts(_ context.Context, rc orgcontext.RequestContext) []PromptTemplate {
	cat := f.catalogFor(rc)
	out := append([]PromptTemplate(nil), cat.Prompts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListResources returns every resource override for rc's organisation,
// sorted by URI.
func (f *FileLoader) ListResources(_ context.Context, rc orgcontext.RequestContext) []ResourceDefinition {
	cat := f.catalogFor(rc)
	out := append([]ResourceDefinition(nil), cat.Resources...)
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// Invalidate drops the cached catalog for rc's organisation, forcing the
// next lookup to re-read from disk.
func (f *FileLoader) Invalidate(rc orgcontext.RequestContext) {
	orgID := ""
	if rc.Organization != nil {
		orgID = rc.Organization.ID
	}
	f.mu.Lock()
	delete(f.cache, orgID)
	f.mu.Unlock()
}

// templateVar matches `{{ name }}`, tolerant of surrounding whitespace.
var templateVar = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// RenderPrompt substitutes template variables: every `{{ name }}` in a
// message's content is replaced by the string value of the matching
// argument; unknown variables are left literal; the `system` role is
// remapped to `user` on output (MCP prompt responses have no system role).
func RenderPrompt(tpl *PromptTemplate, args map[string]string) []Message {
	out := make([]Message, len(tpl.Messages))
	for i, msg := range tpl.Messages {
		role := msg.Role
		if role == "system" {
			role = "user"
		}
		content := templateVar.ReplaceAllStringFunc(msg.Content, func(match string) string {
			name := templateVar.FindStringSubmatch(match)[1]
			if v, ok := args[name]; ok {
				return v
			}
			return match
		})
		out[i] = Message{Role: role, Content: content}
	}
	return out
}
