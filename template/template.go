// Package template provides a prompt template runnable. A Template node
// renders Go text/template markup against its resolved binding inputs, so
// upstream node outputs flow directly into prompt variables.
package template

import (
	"bytes"
	"context"
	"fmt"
	texttemplate "text/template"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/internal/util"
)

// Template is a runnable that renders a parsed text/template against the
// inputs resolved from its provider bindings. The rendered string is
// committed as the node's output.
//
// Helper functions available in templates: default, upper, lower, title, join.
type Template struct {
	node *core.Node
	text string
	tmpl *texttemplate.Template
}

// Options configure template construction.
type Options struct {
	// OutputKey overrides where the rendered text is committed.
	OutputKey string
	// Strict makes references to missing input keys a render error instead of
	// expanding to "<no value>".
	Strict bool
}

// New parses text eagerly and wraps it in a graph node. Parse errors surface
// at construction time, not at invocation time.
func New(name, text string, optFns ...func(o *Options)) (*Template, error) {
	opts := Options{OutputKey: core.DefaultOutputKey}
	for _, fn := range optFns {
		fn(&opts)
	}

	tmpl := texttemplate.New(name).Funcs(util.TemplateFuncs())
	if opts.Strict {
		tmpl = tmpl.Option("missingkey=error")
	}
	tmpl, err := tmpl.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}

	node := core.NewNode(name, func(o *core.NodeOptions) {
		o.OutputKey = opts.OutputKey
	})

	return &Template{node: node, text: text, tmpl: tmpl}, nil
}

// MustNew is like New but panics on parse errors. Intended for templates
// defined as package-level constants.
func MustNew(name, text string, optFns ...func(o *Options)) *Template {
	t, err := New(name, text, optFns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Node returns the binding graph node backing this template.
func (t *Template) Node() *core.Node { return t.node }

// Text returns the raw template source.
func (t *Template) Text() string { return t.text }

// Perform renders the template with the resolved inputs as its data context.
func (t *Template) Perform(_ context.Context, inputs map[string]any) (core.Output, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, inputs); err != nil {
		return nil, fmt.Errorf("template %q: %w", t.node.Name(), err)
	}
	return core.Value{V: buf.String()}, nil
}
