package pipl

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Generator renders decoded documents back into resource-script source. The
// output is accepted unchanged by the ScriptReader, so a generated file
// round-trips to the same documents it was rendered from.
type Generator struct {
	logger hclog.Logger
}

// NewGenerator creates a resource-script generator.
func NewGenerator(logger hclog.Logger) *Generator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Generator{logger: logger}
}

// preamble collects the symbolic constants the rendered body references, in
// first-reference order, and renders them as #define lines ahead of the
// resource blocks.
type preamble struct {
	lines []string
	seen  map[string]bool
}

func (p *preamble) add(name, line string) {
	if p.seen == nil {
		p.seen = map[string]bool{}
	}
	if p.seen[name] {
		return
	}
	p.seen[name] = true
	p.lines = append(p.lines, line)
}

// Generate renders every document as a `resource 'PiPL'` block, preceded by
// the standard SDK includes and a #define for each symbolic constant the
// blocks reference.
func (g *Generator) Generate(docs []Document) (string, error) {
	pre := &preamble{}
	var blocks []string

	for _, doc := range docs {
		block, err := g.renderDocument(doc, pre)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}

	var b strings.Builder
	b.WriteString("#include \"AEConfig.h\"\n")
	b.WriteString("#include \"AE_EffectVers.h\"\n")
	if len(pre.lines) > 0 {
		b.WriteString("\n")
		for _, line := range pre.lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	for _, block := range blocks {
		b.WriteString("\n")
		b.WriteString(block)
	}

	g.logger.Debug("generated resource script", "documents", len(docs), "defines", len(pre.lines))
	return b.String(), nil
}

func (g *Generator) renderDocument(doc Document, pre *preamble) (string, error) {
	var b strings.Builder
	if doc.Name != "" {
		fmt.Fprintf(&b, "resource 'PiPL' (%d, %s) {\n", doc.ID, quoteScriptString(doc.Name))
	} else {
		fmt.Fprintf(&b, "resource 'PiPL' (%d) {\n", doc.ID)
	}
	b.WriteString("\t{\n")
	for i, prop := range doc.Properties {
		body, err := g.renderProperty(prop, pre)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\t\t/* [%d] */\n", i+1)
		b.WriteString("\t\t")
		b.WriteString(body)
		if i+1 < len(doc.Properties) {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("\t}\n")
	b.WriteString("};\n")
	return b.String(), nil
}

func (g *Generator) renderProperty(prop Property, pre *preamble) (string, error) {
	field := prop.Name
	if _, ok := LookupField(field); !ok {
		// Unregistered tags keep their 4-character code as a quoted field
		// name so the reader can round-trip them.
		field = quoteScriptString(prop.Name)
	}

	switch v := prop.Value.(type) {
	case SymbolValue:
		if code, ok := KindCode(string(v)); ok {
			pre.add(string(v), fmt.Sprintf("#define %s '%s'", string(v), string(code[:])))
		}
		return fmt.Sprintf("%s { %s }", field, string(v)), nil

	case StringValue:
		return fmt.Sprintf("%s { %s }", field, quoteScriptString(string(v))), nil

	case EntryPointValue:
		return fmt.Sprintf("%s { %s }", field, v.Symbol), nil

	case IntListValue:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = fmt.Sprintf("%d", n)
		}
		return fmt.Sprintf("%s { %s }", field, strings.Join(parts, ", ")), nil

	case VersionValue:
		return g.renderVersion(field, Version(v), pre)

	case IntValue:
		return fmt.Sprintf("%s { %d }", field, uint32(v)), nil

	case FlagsValue:
		return g.renderFlags(field, prop.Tag, v, pre)

	case RawValue:
		return fmt.Sprintf("%s { %s }", field, hexDataLiteral([]byte(v))), nil

	default:
		return "", decodeErrf(prop.Name, "no script rendering for value %T", prop.Value)
	}
}

func (g *Generator) renderVersion(field string, v Version, pre *preamble) (string, error) {
	if _, err := PackVersion(v); err != nil {
		return "", err
	}
	pre.add("PF_VERSION",
		"#define PF_VERSION(vers, subvers, bugvers, stage, build) "+
			"((vers << 19) | (subvers << 15) | (bugvers << 11) | (stage << 9) | build)")
	pre.add(v.Stage.Symbol(), fmt.Sprintf("#define %s %d", v.Stage.Symbol(), uint32(v.Stage)))
	return fmt.Sprintf("%s { PF_VERSION(%d, %d, %d, %s, %d) }",
		field, v.Major, v.Minor, v.Bug, v.Stage.Symbol(), v.Build), nil
}

func (g *Generator) renderFlags(field string, tag [4]byte, names FlagsValue, pre *preamble) (string, error) {
	info, ok := LookupTag(tag)
	if !ok || info.Flags == nil {
		return "", decodeErrf(string(tag[:]), "no flag table for field %q", field)
	}
	if len(names) == 0 {
		return fmt.Sprintf("%s { 0 }", field), nil
	}
	for _, name := range names {
		mask, ok := info.Flags.mask(name)
		if !ok {
			return "", decodeErrf(info.Flags.Field, "unknown flag name %q", name)
		}
		pre.add(name, fmt.Sprintf("#define %s 0x%08X", name, mask))
	}
	if len(names) == 1 {
		return fmt.Sprintf("%s { %s }", field, names[0]), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s {\n", field)
	for i, name := range names {
		b.WriteString("\t\t\t")
		b.WriteString(name)
		if i+1 < len(names) {
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	b.WriteString("\t\t}")
	return b.String(), nil
}

// quoteScriptString renders text as a double-quoted script string. Printable
// ASCII passes through; everything else is escaped so the tokenizer can read
// it back exactly.
func quoteScriptString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			if r < 0x20 || r > 0x7e {
				fmt.Fprintf(&b, `\x%02X`, r&0xff)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// hexDataLiteral renders bytes as a $"..." data literal, spaced in pairs.
func hexDataLiteral(data []byte) string {
	var b strings.Builder
	b.WriteString(`$"`)
	for i, c := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", c)
	}
	b.WriteByte('"')
	return b.String()
}
