package schema

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Wire shapes for CUE decoding. Kept separate from the model types so the
// authored files stay plain data — no Go-specific structure leaks into CUE.
type rawTemplate struct {
	Title      string     `json:"title"`
	TemplateID string     `json:"template_id"`
	Fields     []rawField `json:"fields"`
}

type rawField struct {
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	Label          string         `json:"label"`
	Required       bool           `json:"required"`
	Prefill        string         `json:"prefill"`
	Conditions     []rawCondition `json:"conditions"`
	DependsOn      []string       `json:"depends_on"`
	Compute        *rawCompute    `json:"compute"`
	Pattern        string         `json:"pattern"`
	PatternMessage string         `json:"pattern_message"`
	MinLength      int            `json:"min_length"`
	MaxLength      int            `json:"max_length"`
	Minimum        *float64       `json:"minimum"`
	Maximum        *float64       `json:"maximum"`
	Enum           []string       `json:"enum"`
	Suggestions    string         `json:"suggestions"`
	Format         string         `json:"format"`
}

type rawCondition struct {
	DependsOn string `json:"depends_on"`
	Operator  string `json:"operator"`
	Value     any    `json:"value"`
}

type rawCompute struct {
	Type     string   `json:"type"`
	Fields   []string `json:"fields"`
	Template string   `json:"template"`
}

// LoadDir loads every *.cue file in dir and registers the templates it
// declares into reg. Each top-level struct field in a file is one template;
// the field label is the template name.
func LoadDir(reg *Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading template dir: %w", err)
	}

	ctx := cuecontext.New()
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".cue") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n, err := loadFile(reg, ctx, path, data)
		if err != nil {
			return err
		}
		loaded += n
	}
	if loaded == 0 {
		return fmt.Errorf("no templates found in %s", dir)
	}
	log.Printf("schema: loaded %d templates from %s", loaded, dir)
	return nil
}

func loadFile(reg *Registry, ctx *cue.Context, path string, data []byte) (int, error) {
	val := ctx.CompileBytes(data, cue.Filename(path))
	if val.Err() != nil {
		return 0, fmt.Errorf("compiling %s: %w", path, val.Err())
	}

	iter, err := val.Fields()
	if err != nil {
		return 0, fmt.Errorf("iterating %s: %w", path, err)
	}

	n := 0
	for iter.Next() {
		label := iter.Selector().String()
		if strings.HasPrefix(label, "#") || strings.HasPrefix(label, "_") {
			continue
		}
		var raw rawTemplate
		if err := iter.Value().Decode(&raw); err != nil {
			return 0, fmt.Errorf("decoding template %q in %s: %w", label, path, err)
		}
		s, err := buildSchema(label, raw)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		if err := reg.Register(s); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

func buildSchema(name string, raw rawTemplate) (*Schema, error) {
	s := &Schema{
		Name:       name,
		Title:      raw.Title,
		TemplateID: raw.TemplateID,
	}
	if s.TemplateID == "" {
		s.TemplateID = name
	}
	for _, rf := range raw.Fields {
		def, err := buildField(name, rf)
		if err != nil {
			return nil, err
		}
		if _, exists := s.Fields[def.Name]; exists {
			return nil, fmt.Errorf("template %q: field %q declared twice", name, def.Name)
		}
		s.AddField(def)
	}
	return s, nil
}

func buildField(template string, rf rawField) (*FieldDef, error) {
	if rf.Name == "" {
		return nil, fmt.Errorf("template %q: field with empty name", template)
	}
	ft, err := ParseFieldType(rf.Type)
	if err != nil {
		return nil, fmt.Errorf("template %q, field %q: %w", template, rf.Name, err)
	}

	def := &FieldDef{
		Name:           rf.Name,
		Type:           ft,
		Label:          rf.Label,
		Required:       rf.Required,
		Prefill:        rf.Prefill,
		DependsOn:      rf.DependsOn,
		PatternMessage: rf.PatternMessage,
		MinLength:      rf.MinLength,
		MaxLength:      rf.MaxLength,
		Minimum:        rf.Minimum,
		Maximum:        rf.Maximum,
		Enum:           rf.Enum,
		Suggestions:    rf.Suggestions,
		Format:         rf.Format,
	}

	if rf.Pattern != "" {
		re, err := regexp.Compile(rf.Pattern)
		if err != nil {
			return nil, fmt.Errorf("template %q, field %q: bad pattern: %w", template, rf.Name, err)
		}
		def.Pattern = re
	}

	for _, rc := range rf.Conditions {
		op := ParseOperator(rc.Operator)
		if op == OpUnknown {
			// Permissive: the condition always holds, the field stays visible.
			log.Printf("schema: template %q, field %q: unknown operator %q", template, rf.Name, rc.Operator)
		}
		def.Conditions = append(def.Conditions, Condition{
			DependsOn: rc.DependsOn,
			Operator:  op,
			Value:     rc.Value,
		})
	}

	if rf.Compute != nil {
		kind, err := ParseComputeKind(rf.Compute.Type)
		if err != nil {
			return nil, fmt.Errorf("template %q, field %q: %w", template, rf.Name, err)
		}
		def.Compute = &ComputeRule{
			Kind:     kind,
			Fields:   rf.Compute.Fields,
			Template: rf.Compute.Template,
		}
	}
	return def, nil
}
