package hcl

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/svcgrid/internal/config"
	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new HCL descriptor loader.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// fileRoot is a struct used to decode all top-level blocks of a file.
type fileRoot struct {
	Services []*serviceBlock `hcl:"service,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type serviceBlock struct {
	Type       string           `hcl:"type,label"`
	ID         string           `hcl:"id,label"`
	Name       *string          `hcl:"name,optional"`
	State      *string          `hcl:"state,optional"`
	Comments   *string          `hcl:"comments,optional"`
	Properties *propertiesBlock `hcl:"properties,block"`
}

type propertiesBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".hcl"}
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, files ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "file_count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()
	evalCtx := l.evalContext()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, block := range root.Services {
			desc, err := translateService(block, evalCtx, file)
			if err != nil {
				return nil, err
			}
			model.Services = append(model.Services, desc)
		}
		logger.Debug("Loaded HCL file.", "file", file, "services", len(root.Services))
	}

	logger.Debug("HCL loading complete.", "services", len(model.Services))
	return model, nil
}

func translateService(block *serviceBlock, evalCtx *hcl.EvalContext, file string) (*config.ServiceDescriptor, error) {
	desc := &config.ServiceDescriptor{
		ID:     block.ID,
		Type:   block.Type,
		Source: file,
	}
	if block.Name != nil {
		desc.Name = *block.Name
	}
	if block.State != nil {
		desc.State = *block.State
	}
	if block.Comments != nil {
		desc.Comments = *block.Comments
	}
	if block.Properties == nil {
		return desc, nil
	}

	attrs, diags := block.Properties.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: service '%s': invalid properties block: %w", file, block.ID, diags)
	}

	// Attributes come back as a map; source position restores written order.
	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	for _, attr := range ordered {
		value, err := propertyValue(attr, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("%s: service '%s': %w", file, block.ID, err)
		}
		desc.Properties = append(desc.Properties, config.Property{Name: attr.Name, Value: value})
	}
	return desc, nil
}

// propertyValue evaluates one property and converts it to a string. Null
// yields nil.
func propertyValue(attr *hcl.Attribute, evalCtx *hcl.EvalContext) (*string, error) {
	v, diags := attr.Expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("property '%s': %w", attr.Name, diags)
	}
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("property '%s': value is not known", attr.Name)
	}

	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return nil, fmt.Errorf("property '%s': must be a string, number or bool, got %s", attr.Name, v.Type().FriendlyName())
	}
	str := s.AsString()
	return &str, nil
}

// evalContext exposes environment variables as env.NAME and a few string
// helpers.
func (l *Loader) evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" || !hclsyntax.ValidIdentifier(name) {
			continue
		}
		env[name] = cty.StringVal(value)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
		Functions: map[string]function.Function{
			"upper":     stdlib.UpperFunc,
			"lower":     stdlib.LowerFunc,
			"trimspace": stdlib.TrimSpaceFunc,
			"format":    stdlib.FormatFunc,
			"coalesce":  stdlib.CoalesceFunc,
		},
	}
}
