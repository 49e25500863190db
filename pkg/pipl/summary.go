package pipl

import (
	"fmt"
	"strings"
)

// Summary is the build-configuration projection of one decoded document: the
// handful of values an effect project's Config.h would carry.
type Summary struct {
	Name        string
	Category    string
	MatchName   string
	Version     Version
	OutFlags    []string
	OutFlags2   []string
	EntryPoints map[string]string // field name -> exported symbol
}

// Summarize projects a decoded document onto its Summary. Missing properties
// keep the conventional defaults a fresh effect project starts from.
func Summarize(doc Document) Summary {
	s := Summary{
		Name:        "Unknown Plugin",
		Category:    "Utility",
		MatchName:   "UNKNOWN",
		Version:     Version{Major: 1, Build: 1},
		EntryPoints: map[string]string{},
	}
	for _, prop := range doc.Properties {
		switch prop.Name {
		case "Name":
			if v, ok := prop.Value.(StringValue); ok && v != "" {
				s.Name = string(v)
			}
		case "Category":
			if v, ok := prop.Value.(StringValue); ok && v != "" {
				s.Category = string(v)
			}
		case "AE_Effect_Match_Name":
			if v, ok := prop.Value.(StringValue); ok && v != "" {
				s.MatchName = string(v)
			}
		case "AE_Effect_Version":
			if v, ok := prop.Value.(VersionValue); ok {
				s.Version = Version(v)
			}
		case "AE_Effect_Global_OutFlags":
			if v, ok := prop.Value.(FlagsValue); ok {
				s.OutFlags = []string(v)
			}
		case "AE_Effect_Global_OutFlags_2":
			if v, ok := prop.Value.(FlagsValue); ok {
				s.OutFlags2 = []string(v)
			}
		case "CodeWin64X86", "CodeMacIntel64", "CodeMacARM64":
			if v, ok := prop.Value.(EntryPointValue); ok {
				s.EntryPoints[prop.Name] = v.Symbol
			}
		}
	}
	return s
}

// RenderConfig renders the summary as Config.h style #define lines.
func (s Summary) RenderConfig() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#define FX_NAME %q\n", s.Name)
	fmt.Fprintf(&b, "#define FX_CATEGORY %q\n", s.Category)
	fmt.Fprintf(&b, "#define FX_UNIQUEID %q\n", s.MatchName)
	b.WriteString("\n")
	fmt.Fprintf(&b, "#define MAJOR_VERSION %d\n", s.Version.Major)
	fmt.Fprintf(&b, "#define MINOR_VERSION %d\n", s.Version.Minor)
	fmt.Fprintf(&b, "#define BUG_VERSION %d\n", s.Version.Bug)
	fmt.Fprintf(&b, "#define STAGE_VERSION %s\n", s.Version.Stage.Symbol())
	fmt.Fprintf(&b, "#define BUILD_VERSION %d\n", s.Version.Build)
	b.WriteString("\n")
	b.WriteString(renderFlagDefine("FX_OUT_FLAGS", s.OutFlags))
	b.WriteString(renderFlagDefine("FX_OUT_FLAGS2", s.OutFlags2))
	return b.String()
}

func renderFlagDefine(name string, flags []string) string {
	if len(flags) == 0 {
		return fmt.Sprintf("#define %s 0\n", name)
	}
	if len(flags) == 1 {
		return fmt.Sprintf("#define %s %s\n", name, flags[0])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "#define %s ( \\\n", name)
	for i, f := range flags {
		b.WriteString("\t")
		b.WriteString(f)
		if i+1 < len(flags) {
			b.WriteString(" | \\")
		} else {
			b.WriteString(" )")
		}
		b.WriteString("\n")
	}
	return b.String()
}
