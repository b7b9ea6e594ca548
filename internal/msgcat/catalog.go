package msgcat

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var embedded embed.FS

const embeddedName = "messages.en.yaml"

// Catalog maps dotted keys such as "match.checkmate" to compiled templates.
// It is read-only after New and safe for concurrent use.
type Catalog struct {
	tpl map[string]*template.Template
}

// New loads the embedded English messages, then every *.yaml / *.yml file in
// overrideDir in name order. An override file may replace embedded keys but
// two override files may not define the same key.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{tpl: make(map[string]*template.Template)}
	base, err := readLayer(embedded, embeddedName)
	if err != nil {
		return nil, fmt.Errorf("embedded messages: %w", err)
	}
	if err := c.compile(base); err != nil {
		return nil, fmt.Errorf("embedded messages: %w", err)
	}

	dir := strings.TrimSpace(overrideDir)
	if dir == "" {
		return c, nil
	}
	overrides, err := readOverrides(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("message overrides %s: %w", dir, err)
	}
	if err := c.compile(overrides); err != nil {
		return nil, fmt.Errorf("message overrides %s: %w", dir, err)
	}
	return c, nil
}

func readOverrides(fsys fs.FS) (map[string]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	// fs.ReadDir returns entries sorted by name
	merged := make(map[string]string)
	owner := make(map[string]string)
	for _, e := range entries {
		ext := strings.ToLower(path.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		layer, err := readLayer(fsys, e.Name())
		if err != nil {
			return nil, err
		}
		for k, v := range layer {
			if prev, dup := owner[k]; dup {
				return nil, fmt.Errorf("duplicate key %q in %s and %s", k, prev, e.Name())
			}
			owner[k] = e.Name()
			merged[k] = v
		}
	}
	return merged, nil
}

func readLayer(fsys fs.FS, name string) (map[string]string, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	out := make(map[string]string)
	if len(doc.Content) == 0 {
		return out, nil
	}
	if err := flatten(doc.Content[0], "", out); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// flatten walks nested mappings into dotted keys. Leaves must be strings.
func flatten(n *yaml.Node, prefix string, out map[string]string) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := flatten(n.Content[i+1], key, out); err != nil {
				return err
			}
		}
		return nil
	case yaml.ScalarNode:
		if prefix == "" {
			return fmt.Errorf("line %d: value without a key", n.Line)
		}
		if n.Tag == "!!null" {
			return nil
		}
		if n.Tag != "!!str" {
			return fmt.Errorf("line %d: %s is %s, want a string", n.Line, prefix, n.Tag)
		}
		out[prefix] = n.Value
		return nil
	default:
		return fmt.Errorf("line %d: %s must be a mapping or a string", n.Line, prefix)
	}
}

func (c *Catalog) compile(layer map[string]string) error {
	for k, text := range layer {
		if strings.TrimSpace(text) == "" {
			delete(c.tpl, k)
			continue
		}
		t, err := template.New(k).Option("missingkey=error").Parse(text)
		if err != nil {
			return fmt.Errorf("template %s: %w", k, err)
		}
		c.tpl[k] = t
	}
	return nil
}

// Render executes the template for key. Unknown keys and missing fields are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
	t, ok := c.tpl[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("template not found: %s", key)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Text is Render falling back to the key itself, so a broken message never
// hides the event behind it.
func (c *Catalog) Text(key string, data any) string {
	out, err := c.Render(key, data)
	if err != nil {
		return key
	}
	return out
}

func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.tpl))
	for k := range c.tpl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
