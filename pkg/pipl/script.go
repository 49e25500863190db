package pipl

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
)

const scriptContainer = "script"

// ScriptReader parses textual resource-script source and reconstructs the
// same raw property records a compiled container would yield. It is the
// inverse of the Generator.
type ScriptReader struct {
	logger hclog.Logger
}

// NewScriptReader creates a resource-script reader.
func NewScriptReader(logger hclog.Logger) *ScriptReader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ScriptReader{logger: logger}
}

// Extract parses every `resource 'PiPL' (...) { ... };` block in the input.
// Resource blocks of other types are skipped. Structural problems fail with
// a FormatError; unresolvable symbols fail with a DecodeError.
func (r *ScriptReader) Extract(data []byte) ([]RawDocument, error) {
	p := &scriptParser{
		scan:   scriptScanner{src: data},
		logger: r.logger,
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	docs := []RawDocument{}
	for p.tok.kind != tEOF {
		if p.tok.kind != tIdent || p.tok.text != "resource" {
			return nil, formatErrf(scriptContainer, int64(p.tok.pos), "expected 'resource', found %s", p.tok.describe())
		}
		doc, ok, err := p.parseResource()
		if err != nil {
			return nil, err
		}
		if ok {
			r.logger.Debug("parsed script resource", "id", doc.ID, "name", doc.Name, "properties", len(doc.Records))
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Token kinds.
type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tString
	tHexString // $"..." raw data literal
	tFourCC    // '....' type code literal
	tInt
	tLBrace
	tRBrace
	tLParen
	tRParen
	tComma
	tSemi
	tPipe
)

type token struct {
	kind tokenKind
	text string
	num  int64
	pos  int
}

func (t token) describe() string {
	switch t.kind {
	case tEOF:
		return "end of input"
	case tIdent:
		return fmt.Sprintf("identifier %q", t.text)
	case tString:
		return fmt.Sprintf("string %q", t.text)
	case tHexString:
		return "hex data literal"
	case tFourCC:
		return fmt.Sprintf("type code '%s'", t.text)
	case tInt:
		return fmt.Sprintf("integer %d", t.num)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// scriptScanner tokenizes resource-script source. Comments (// and /* */)
// and preprocessor lines (#include, #define) are skipped: the reader only
// consumes the resource blocks themselves.
type scriptScanner struct {
	src []byte
	pos int
}

func (s *scriptScanner) next() (token, error) {
	for {
		s.skipSpace()
		if s.pos >= len(s.src) {
			return token{kind: tEOF, pos: s.pos}, nil
		}
		c := s.src[s.pos]
		switch {
		case c == '/' && s.peekAt(1) == '/':
			s.skipLine()
		case c == '/' && s.peekAt(1) == '*':
			if err := s.skipBlockComment(); err != nil {
				return token{}, err
			}
		case c == '#':
			s.skipLine()
		default:
			return s.scanToken()
		}
	}
}

func (s *scriptScanner) peekAt(n int) byte {
	if s.pos+n < len(s.src) {
		return s.src[s.pos+n]
	}
	return 0
}

func (s *scriptScanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func (s *scriptScanner) skipLine() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scriptScanner) skipBlockComment() error {
	start := s.pos
	s.pos += 2
	for s.pos+1 < len(s.src) {
		if s.src[s.pos] == '*' && s.src[s.pos+1] == '/' {
			s.pos += 2
			return nil
		}
		s.pos++
	}
	return formatErrf(scriptContainer, int64(start), "unterminated comment")
}

func (s *scriptScanner) scanToken() (token, error) {
	start := s.pos
	c := s.src[s.pos]

	switch c {
	case '{':
		s.pos++
		return token{kind: tLBrace, text: "{", pos: start}, nil
	case '}':
		s.pos++
		return token{kind: tRBrace, text: "}", pos: start}, nil
	case '(':
		s.pos++
		return token{kind: tLParen, text: "(", pos: start}, nil
	case ')':
		s.pos++
		return token{kind: tRParen, text: ")", pos: start}, nil
	case ',':
		s.pos++
		return token{kind: tComma, text: ",", pos: start}, nil
	case ';':
		s.pos++
		return token{kind: tSemi, text: ";", pos: start}, nil
	case '|':
		s.pos++
		return token{kind: tPipe, text: "|", pos: start}, nil
	case '"':
		return s.scanString()
	case '$':
		if s.peekAt(1) == '"' {
			return s.scanHexString()
		}
		return token{}, formatErrf(scriptContainer, int64(start), "unexpected character %q", c)
	case '\'':
		return s.scanFourCC()
	}

	if c == '-' || (c >= '0' && c <= '9') {
		return s.scanNumber()
	}
	if isIdentStart(c) {
		for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
			s.pos++
		}
		return token{kind: tIdent, text: string(s.src[start:s.pos]), pos: start}, nil
	}
	return token{}, formatErrf(scriptContainer, int64(start), "unexpected character %q", c)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (s *scriptScanner) scanString() (token, error) {
	start := s.pos
	s.pos++ // opening quote
	var b strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch c {
		case '"':
			s.pos++
			return token{kind: tString, text: b.String(), pos: start}, nil
		case '\\':
			s.pos++
			if s.pos >= len(s.src) {
				return token{}, formatErrf(scriptContainer, int64(start), "unterminated string")
			}
			esc := s.src[s.pos]
			s.pos++
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			case 'x':
				if s.pos+2 > len(s.src) {
					return token{}, formatErrf(scriptContainer, int64(start), "truncated \\x escape")
				}
				hi, ok1 := hexDigit(s.src[s.pos])
				lo, ok2 := hexDigit(s.src[s.pos+1])
				if !ok1 || !ok2 {
					return token{}, formatErrf(scriptContainer, int64(s.pos), "invalid \\x escape")
				}
				b.WriteByte(hi<<4 | lo)
				s.pos += 2
			default:
				b.WriteByte(esc)
			}
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	return token{}, formatErrf(scriptContainer, int64(start), "unterminated string")
}

func (s *scriptScanner) scanHexString() (token, error) {
	start := s.pos
	s.pos += 2 // $"
	var data []byte
	var pending byte
	havePending := false
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '"' {
			s.pos++
			if havePending {
				return token{}, formatErrf(scriptContainer, int64(start), "odd digit count in hex data literal")
			}
			return token{kind: tHexString, text: string(data), pos: start}, nil
		}
		if c == ' ' || c == '\t' {
			s.pos++
			continue
		}
		d, ok := hexDigit(c)
		if !ok {
			return token{}, formatErrf(scriptContainer, int64(s.pos), "invalid hex digit %q", c)
		}
		if havePending {
			data = append(data, pending<<4|d)
			havePending = false
		} else {
			pending = d
			havePending = true
		}
		s.pos++
	}
	return token{}, formatErrf(scriptContainer, int64(start), "unterminated hex data literal")
}

func (s *scriptScanner) scanFourCC() (token, error) {
	start := s.pos
	s.pos++
	end := s.pos
	for end < len(s.src) && s.src[end] != '\'' {
		end++
	}
	if end >= len(s.src) {
		return token{}, formatErrf(scriptContainer, int64(start), "unterminated type code literal")
	}
	text := string(s.src[s.pos:end])
	if len(text) != 4 {
		return token{}, formatErrf(scriptContainer, int64(start), "type code '%s' is not 4 characters", text)
	}
	s.pos = end + 1
	return token{kind: tFourCC, text: text, pos: start}, nil
}

func (s *scriptScanner) scanNumber() (token, error) {
	start := s.pos
	neg := false
	if s.src[s.pos] == '-' {
		neg = true
		s.pos++
	}
	var v int64
	if s.peekAt(0) == '0' && (s.peekAt(1) == 'x' || s.peekAt(1) == 'X') {
		s.pos += 2
		digits := 0
		for s.pos < len(s.src) {
			d, ok := hexDigit(s.src[s.pos])
			if !ok {
				break
			}
			v = v<<4 | int64(d)
			digits++
			s.pos++
		}
		if digits == 0 {
			return token{}, formatErrf(scriptContainer, int64(start), "malformed hex literal")
		}
	} else {
		digits := 0
		for s.pos < len(s.src) && s.src[s.pos] >= '0' && s.src[s.pos] <= '9' {
			v = v*10 + int64(s.src[s.pos]-'0')
			digits++
			s.pos++
		}
		if digits == 0 {
			return token{}, formatErrf(scriptContainer, int64(start), "malformed integer literal")
		}
	}
	// Long-literal suffix from Windows resource scripts.
	if s.pos < len(s.src) && (s.src[s.pos] == 'L' || s.src[s.pos] == 'l') {
		s.pos++
	}
	if neg {
		v = -v
	}
	return token{kind: tInt, num: v, pos: start}, nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// scriptParser consumes the token stream.
type scriptParser struct {
	scan   scriptScanner
	tok    token
	logger hclog.Logger
}

func (p *scriptParser) advance() error {
	tok, err := p.scan.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *scriptParser) expect(kind tokenKind, what string) (token, error) {
	if p.tok.kind != kind {
		return token{}, formatErrf(scriptContainer, int64(p.tok.pos), "expected %s, found %s", what, p.tok.describe())
	}
	tok := p.tok
	return tok, p.advance()
}

// parseResource parses one resource block. The boolean result reports
// whether the block was a PiPL resource.
func (p *scriptParser) parseResource() (RawDocument, bool, error) {
	if err := p.advance(); err != nil { // consume 'resource'
		return RawDocument{}, false, err
	}
	typeTok, err := p.expect(tFourCC, "resource type code")
	if err != nil {
		return RawDocument{}, false, err
	}
	if _, err := p.expect(tLParen, "'('"); err != nil {
		return RawDocument{}, false, err
	}
	idTok, err := p.expect(tInt, "resource id")
	if err != nil {
		return RawDocument{}, false, err
	}
	name := ""
	if p.tok.kind == tComma {
		if err := p.advance(); err != nil {
			return RawDocument{}, false, err
		}
		nameTok, err := p.expect(tString, "resource name")
		if err != nil {
			return RawDocument{}, false, err
		}
		name = nameTok.text
	}
	if _, err := p.expect(tRParen, "')'"); err != nil {
		return RawDocument{}, false, err
	}

	if typeTok.text != string(PiPLType[:]) {
		p.logger.Trace("skipping resource block", "type", typeTok.text)
		if err := p.skipBlock(); err != nil {
			return RawDocument{}, false, err
		}
		return RawDocument{}, false, nil
	}

	if _, err := p.expect(tLBrace, "'{'"); err != nil {
		return RawDocument{}, false, err
	}
	if _, err := p.expect(tLBrace, "'{'"); err != nil {
		return RawDocument{}, false, err
	}

	var records []RawPropertyRecord
	for p.tok.kind != tRBrace {
		rec, err := p.parseProperty()
		if err != nil {
			return RawDocument{}, false, err
		}
		records = append(records, rec)
		if p.tok.kind == tComma {
			if err := p.advance(); err != nil {
				return RawDocument{}, false, err
			}
		}
	}
	if err := p.advance(); err != nil { // inner '}'
		return RawDocument{}, false, err
	}
	if _, err := p.expect(tRBrace, "'}'"); err != nil {
		return RawDocument{}, false, err
	}
	if _, err := p.expect(tSemi, "';'"); err != nil {
		return RawDocument{}, false, err
	}

	return RawDocument{ID: int16(idTok.num), Name: name, Records: records}, true, nil
}

// skipBlock consumes a balanced { ... } block and its trailing semicolon.
func (p *scriptParser) skipBlock() error {
	if _, err := p.expect(tLBrace, "'{'"); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		switch p.tok.kind {
		case tLBrace:
			depth++
		case tRBrace:
			depth--
		case tEOF:
			return formatErrf(scriptContainer, int64(p.tok.pos), "unbalanced braces")
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	if p.tok.kind == tSemi {
		return p.advance()
	}
	return nil
}

// parseProperty parses `<Field> { <value-list> }`. Known fields resolve
// through the registry alias table; unknown tags are written as a quoted
// 4-character code with a hex data literal body.
func (p *scriptParser) parseProperty() (RawPropertyRecord, error) {
	var info PropertyInfo
	var tag [4]byte

	switch p.tok.kind {
	case tIdent:
		resolved, ok := LookupField(p.tok.text)
		if !ok {
			return RawPropertyRecord{}, decodeErrf(p.tok.text, "unknown property field name")
		}
		info = resolved
		tag = resolved.Tag
	case tString:
		if len(p.tok.text) != 4 {
			return RawPropertyRecord{}, formatErrf(scriptContainer, int64(p.tok.pos), "property tag %q is not 4 characters", p.tok.text)
		}
		tag = MakeTag(p.tok.text)
		info = PropertyInfo{Tag: tag, Field: p.tok.text, Class: ClassRaw}
	default:
		return RawPropertyRecord{}, formatErrf(scriptContainer, int64(p.tok.pos), "expected property name, found %s", p.tok.describe())
	}
	if err := p.advance(); err != nil {
		return RawPropertyRecord{}, err
	}

	if _, err := p.expect(tLBrace, "'{'"); err != nil {
		return RawPropertyRecord{}, err
	}
	data, err := p.parseValue(info)
	if err != nil {
		return RawPropertyRecord{}, err
	}
	if _, err := p.expect(tRBrace, "'}'"); err != nil {
		return RawPropertyRecord{}, err
	}

	return RawPropertyRecord{Tag: tag, Length: uint32(len(data)), Data: data}, nil
}

// parseValue packs a value list into property payload bytes according to
// the field's declared class. A hex data literal is accepted for any field
// and passes through unpacked.
func (p *scriptParser) parseValue(info PropertyInfo) ([]byte, error) {
	if p.tok.kind == tHexString {
		data := []byte(p.tok.text)
		return data, p.advance()
	}

	switch info.Class {
	case ClassKind:
		tok, err := p.expect(tIdent, "plugin kind constant")
		if err != nil {
			return nil, err
		}
		code, ok := KindCode(tok.text)
		if !ok {
			return nil, decodeErrf(info.Field, "unknown plugin kind %q", tok.text)
		}
		return code[:], nil

	case ClassString:
		tok, err := p.expect(tString, "quoted string")
		if err != nil {
			return nil, err
		}
		return append([]byte(tok.text), 0), nil

	case ClassEntryPoint:
		tok, err := p.expect(tIdent, "entry point symbol")
		if err != nil {
			return nil, err
		}
		data := make([]byte, 0, len(tok.text)+1)
		data = append(data, info.Platform)
		return append(data, tok.text...), nil

	case ClassIntPair:
		hi, err := p.expect(tInt, "integer")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tComma, "','"); err != nil {
			return nil, err
		}
		lo, err := p.expect(tInt, "integer")
		if err != nil {
			return nil, err
		}
		data := putBE16(uint16(hi.num))
		return append(data, putBE16(uint16(lo.num))...), nil

	case ClassVersion:
		return p.parseVersionValue(info)

	case ClassInt32:
		tok, err := p.expect(tInt, "integer")
		if err != nil {
			return nil, err
		}
		return putBE32(uint32(tok.num)), nil

	case ClassFlags:
		return p.parseFlagsValue(info)

	default:
		return nil, formatErrf(scriptContainer, int64(p.tok.pos), "expected hex data literal for %q, found %s", info.Field, p.tok.describe())
	}
}

// parseVersionValue accepts either a bare packed integer or a
// PF_VERSION(major, minor, bug, stage, build) macro invocation.
func (p *scriptParser) parseVersionValue(info PropertyInfo) ([]byte, error) {
	if p.tok.kind == tInt {
		word := uint32(p.tok.num)
		return putBE32(word), p.advance()
	}

	tok, err := p.expect(tIdent, "PF_VERSION macro or integer")
	if err != nil {
		return nil, err
	}
	if tok.text != "PF_VERSION" {
		return nil, decodeErrf(info.Field, "unknown version macro %q", tok.text)
	}
	if _, err := p.expect(tLParen, "'('"); err != nil {
		return nil, err
	}

	fields := make([]uint32, 0, 5)
	for i := 0; i < 5; i++ {
		if i > 0 {
			if _, err := p.expect(tComma, "','"); err != nil {
				return nil, err
			}
		}
		switch p.tok.kind {
		case tInt:
			fields = append(fields, uint32(p.tok.num))
		case tIdent:
			stage, ok := StageFromSymbol(p.tok.text)
			if !ok {
				return nil, decodeErrf(info.Field, "unknown stage symbol %q", p.tok.text)
			}
			fields = append(fields, uint32(stage))
		default:
			return nil, formatErrf(scriptContainer, int64(p.tok.pos), "expected version field, found %s", p.tok.describe())
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tRParen, "')'"); err != nil {
		return nil, err
	}

	word, err := PackVersion(Version{
		Major: fields[0],
		Minor: fields[1],
		Bug:   fields[2],
		Stage: Stage(fields[3]),
		Build: fields[4],
	})
	if err != nil {
		return nil, err
	}
	return putBE32(word), nil
}

// parseFlagsValue accepts an OR-expression of flag symbols and integer
// literals, resolved through the field's flag table.
func (p *scriptParser) parseFlagsValue(info PropertyInfo) ([]byte, error) {
	var word uint32
	for {
		switch p.tok.kind {
		case tInt:
			word |= uint32(p.tok.num)
		case tIdent:
			mask, err := info.Flags.Compose([]string{p.tok.text})
			if err != nil {
				return nil, err
			}
			word |= mask
		default:
			return nil, formatErrf(scriptContainer, int64(p.tok.pos), "expected flag symbol, found %s", p.tok.describe())
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tPipe {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return putBE32(word), nil
}
