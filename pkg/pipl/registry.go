package pipl

// ValueClass selects the decoder for a registered property tag.
type ValueClass int

const (
	ClassRaw        ValueClass = iota // opaque bytes, fallback
	ClassKind                         // 4-byte plugin kind code
	ClassString                       // legacy Mac-compatible text
	ClassEntryPoint                   // platform code byte + symbol name
	ClassIntPair                      // two big-endian 16-bit integers
	ClassVersion                      // packed 32-bit version word
	ClassInt32                        // single big-endian 32-bit integer
	ClassFlags                        // 32-bit flag word with a FlagTable
)

// Platform codes carried in the first byte of entry-point property data.
const (
	PlatformWin64X86   byte = 0x01
	PlatformMacIntel64 byte = 0x02
	PlatformMacARM64   byte = 0x03
)

// PropertyInfo describes one registered property tag: its script-level field
// name, semantic class, declared fixed width (0 = variable), and the class
// specifics (flag table, entry-point platform code).
type PropertyInfo struct {
	Tag      [4]byte
	Field    string
	Class    ValueClass
	Width    int
	Flags    *FlagTable
	Platform byte
}

// PiPLType is the resource type code of PIPL resources.
var PiPLType = MakeTag("PiPL")

// registry is the documented PIPL property set. Tags outside it decode to a
// raw byte fallback, never an error.
var registry = []PropertyInfo{
	{Tag: MakeTag("kind"), Field: "Kind", Class: ClassKind, Width: 4},
	{Tag: MakeTag("name"), Field: "Name", Class: ClassString},
	{Tag: MakeTag("catg"), Field: "Category", Class: ClassString},
	{Tag: MakeTag("8664"), Field: "CodeWin64X86", Class: ClassEntryPoint, Platform: PlatformWin64X86},
	{Tag: MakeTag("mi64"), Field: "CodeMacIntel64", Class: ClassEntryPoint, Platform: PlatformMacIntel64},
	{Tag: MakeTag("ma64"), Field: "CodeMacARM64", Class: ClassEntryPoint, Platform: PlatformMacARM64},
	{Tag: MakeTag("ePVR"), Field: "AE_PiPL_Version", Class: ClassIntPair, Width: 4},
	{Tag: MakeTag("eSVR"), Field: "AE_Effect_Spec_Version", Class: ClassIntPair, Width: 4},
	{Tag: MakeTag("eVER"), Field: "AE_Effect_Version", Class: ClassVersion, Width: 4},
	{Tag: MakeTag("eINF"), Field: "AE_Effect_Info_Flags", Class: ClassInt32, Width: 4},
	{Tag: MakeTag("eGLO"), Field: "AE_Effect_Global_OutFlags", Class: ClassFlags, Width: 4, Flags: &OutFlags},
	{Tag: MakeTag("eGL2"), Field: "AE_Effect_Global_OutFlags_2", Class: ClassFlags, Width: 4, Flags: &OutFlags2},
	{Tag: MakeTag("eMNA"), Field: "AE_Effect_Match_Name", Class: ClassString},
	{Tag: MakeTag("aeFL"), Field: "AE_Reserved_Info", Class: ClassInt32, Width: 4},
}

// Plugin kind codes and their named constants.
var pluginKinds = []struct {
	Code [4]byte
	Name string
}{
	{MakeTag("eFKT"), "AEEffect"},
	{MakeTag("SPEA"), "AdobeSuitePea"},
	{MakeTag("ARPI"), "AdobeIllustrator"},
	{MakeTag("8BFM"), "FilterModule"},
	{MakeTag("8BIF"), "FormatModule"},
}

// Lookup maps built once at startup; the registry itself is never mutated.
var (
	infoByTag   = map[[4]byte]PropertyInfo{}
	infoByField = map[string]PropertyInfo{}
	kindByCode  = map[[4]byte]string{}
	kindByName  = map[string][4]byte{}
)

func init() {
	for _, info := range registry {
		infoByTag[info.Tag] = info
		infoByField[info.Field] = info
	}
	for _, k := range pluginKinds {
		kindByCode[k.Code] = k.Name
		kindByName[k.Name] = k.Code
	}
}

// LookupTag returns the registry entry for a tag, if registered.
func LookupTag(tag [4]byte) (PropertyInfo, bool) {
	info, ok := infoByTag[tag]
	return info, ok
}

// LookupField resolves a script-level field name to its registry entry.
func LookupField(field string) (PropertyInfo, bool) {
	info, ok := infoByField[field]
	return info, ok
}

// KindName returns the named constant for a plugin kind code.
func KindName(code [4]byte) (string, bool) {
	name, ok := kindByCode[code]
	return name, ok
}

// KindCode resolves a plugin kind constant name back to its 4-byte code.
func KindCode(name string) ([4]byte, bool) {
	code, ok := kindByName[name]
	return code, ok
}
