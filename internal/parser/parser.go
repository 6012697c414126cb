// Package parser binds a receipt document to its data and hands the resolved
// commands to the renderer.
package parser

import (
	"image"

	"github.com/go-faster/errors"

	"github.com/thereceipt/parcel-receipt/internal/renderer"
	"github.com/thereceipt/parcel-receipt/pkg/receiptformat"
)

// Parser resolves variables, array bindings and conditions of one document.
type Parser struct {
	doc  *receiptformat.Document
	vars map[string]receiptformat.Variable
	data receiptformat.Data
}

// New creates a parser for doc. The document is validated first.
func New(doc *receiptformat.Document, data receiptformat.Data) (*Parser, error) {
	if err := receiptformat.Validate(doc); err != nil {
		return nil, errors.Wrap(err, "invalid receipt")
	}

	vars := make(map[string]receiptformat.Variable, len(doc.Variables))
	for _, v := range doc.Variables {
		vars[v.Name] = v
	}

	return &Parser{doc: doc, vars: vars, data: data}, nil
}

// Resolve returns the document commands with every var and field replaced by its
// value, bound commands repeated per record and conditional commands dropped.
func (p *Parser) Resolve() []receiptformat.Command {
	return p.resolveAll(p.doc.Commands, nil)
}

// Execute resolves the document and renders it to an image.
func (p *Parser) Execute(opts ...renderer.Option) (image.Image, error) {
	r, err := renderer.New(p.doc, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create renderer")
	}

	for _, cmd := range p.Resolve() {
		if err := r.RenderCommand(&cmd); err != nil {
			return nil, errors.Wrapf(err, "render %s", cmd.Type)
		}
	}

	return r.Image(), nil
}

func (p *Parser) resolveAll(cmds []receiptformat.Command, record map[string]string) []receiptformat.Command {
	out := make([]receiptformat.Command, 0, len(cmds))
	for i := range cmds {
		cmd := &cmds[i]
		if cmd.Bind != "" {
			for _, rec := range p.data.Arrays[cmd.Bind] {
				if resolved, ok := p.resolve(cmd, rec); ok {
					out = append(out, resolved)
				}
			}
			continue
		}
		if resolved, ok := p.resolve(cmd, record); ok {
			out = append(out, resolved)
		}
	}
	return out
}

// resolve returns a copy of cmd bound to record. ok is false when the command's
// condition is empty.
func (p *Parser) resolve(cmd *receiptformat.Command, record map[string]string) (receiptformat.Command, bool) {
	if cmd.When != "" && p.lookup(cmd.When, record) == "" {
		return receiptformat.Command{}, false
	}

	resolved := *cmd
	resolved.Bind = ""
	resolved.When = ""

	switch {
	case cmd.Var != "":
		resolved.Value = p.variable(cmd.Var)
		resolved.Var = ""
	case cmd.Field != "":
		resolved.Value = record[cmd.Field]
		resolved.Field = ""
	}

	if len(cmd.Left) > 0 {
		resolved.Left = p.resolveAll(cmd.Left, record)
	}
	if len(cmd.Right) > 0 {
		resolved.Right = p.resolveAll(cmd.Right, record)
	}
	if len(cmd.Commands) > 0 {
		resolved.Commands = p.resolveAll(cmd.Commands, record)
	}

	return resolved, true
}

func (p *Parser) lookup(name string, record map[string]string) string {
	if v, ok := record[name]; ok {
		return v
	}
	if _, ok := p.vars[name]; ok {
		return p.raw(name)
	}
	return ""
}

func (p *Parser) raw(name string) string {
	if v, ok := p.data.Vars[name]; ok {
		return v
	}
	return p.vars[name].Default
}

// variable formats a variable with its prefix and suffix. Empty values stay empty.
func (p *Parser) variable(name string) string {
	v := p.raw(name)
	if v == "" {
		return ""
	}
	def := p.vars[name]
	return def.Prefix + v + def.Suffix
}
