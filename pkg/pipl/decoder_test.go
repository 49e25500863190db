package pipl

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeDocument(t *testing.T) {
	raw := RawDocument{
		ID:   16000,
		Name: "PSS License Plugin",
		Records: []RawPropertyRecord{
			{Tag: MakeTag("kind"), Length: 4, Data: []byte("eFKT")},
			{Tag: MakeTag("name"), Length: 19, Data: append([]byte("PSS License Plugin"), 0)},
			{Tag: MakeTag("catg"), Length: 20, Data: append([]byte("Pixel Sorter Studio"), 0)},
			{Tag: MakeTag("8664"), Length: 11, Data: append([]byte{PlatformWin64X86}, "EffectMain"...)},
			{Tag: MakeTag("ePVR"), Length: 4, Data: []byte{0, 2, 0, 0}},
			{Tag: MakeTag("eVER"), Length: 4, Data: putBE32(0x00106001)},
			{Tag: MakeTag("eINF"), Length: 4, Data: putBE32(0)},
			{Tag: MakeTag("eGLO"), Length: 4, Data: putBE32(0x02000000 | 0x00000400)},
			{Tag: MakeTag("zzzz"), Length: 3, Data: []byte{1, 2, 3}},
		},
	}

	doc, err := NewDecoder(testLogger(t)).DecodeDocument(raw)
	if err != nil {
		t.Fatalf("DecodeDocument failed: %v", err)
	}
	if doc.ID != 16000 || doc.Name != "PSS License Plugin" {
		t.Errorf("identity = %d %q", doc.ID, doc.Name)
	}
	if len(doc.Properties) != len(raw.Records) {
		t.Fatalf("got %d properties, want %d", len(doc.Properties), len(raw.Records))
	}

	expectations := []struct {
		name  string
		value Value
	}{
		{"Kind", SymbolValue("AEEffect")},
		{"Name", StringValue("PSS License Plugin")},
		{"Category", StringValue("Pixel Sorter Studio")},
		{"CodeWin64X86", EntryPointValue{Platform: PlatformWin64X86, Symbol: "EffectMain"}},
		{"AE_PiPL_Version", IntListValue{2, 0}},
		{"AE_Effect_Version", VersionValue{Major: 2, Minor: 0, Bug: 12, Stage: StageDevelop, Build: 1}},
		{"AE_Effect_Info_Flags", IntValue(0)},
		{"AE_Effect_Global_OutFlags", FlagsValue{"PF_OutFlag_PIX_INDEPENDENT", "PF_OutFlag_DEEP_COLOR_AWARE"}},
		{"zzzz", RawValue{1, 2, 3}},
	}
	for i, want := range expectations {
		got := doc.Properties[i]
		if got.Name != want.name {
			t.Errorf("property %d name = %q, want %q", i, got.Name, want.name)
		}
		if !reflect.DeepEqual(got.Value, want.value) {
			t.Errorf("property %d value = %#v, want %#v", i, got.Value, want.value)
		}
	}
}

func TestDecodeWidthMismatch(t *testing.T) {
	raw := RawDocument{Records: []RawPropertyRecord{
		{Tag: MakeTag("eVER"), Length: 2, Data: []byte{0, 1}},
	}}

	_, err := NewDecoder(testLogger(t)).DecodeDocument(raw)
	if err == nil {
		t.Fatal("DecodeDocument accepted a short version payload")
	}
	if !errors.Is(err, ErrBadValue) {
		t.Errorf("error %v does not wrap ErrBadValue", err)
	}
}

func TestDecodeUnknownKindCode(t *testing.T) {
	raw := RawDocument{Records: []RawPropertyRecord{
		{Tag: MakeTag("kind"), Length: 4, Data: []byte("QQQQ")},
	}}

	doc, err := NewDecoder(testLogger(t)).DecodeDocument(raw)
	if err != nil {
		t.Fatalf("DecodeDocument failed: %v", err)
	}
	// Unknown kind codes stay raw so they survive a round trip unchanged.
	if !reflect.DeepEqual(doc.Properties[0].Value, RawValue("QQQQ")) {
		t.Errorf("value = %#v, want raw QQQQ", doc.Properties[0].Value)
	}
}

func TestDecodeUnresolvedFlagBits(t *testing.T) {
	raw := RawDocument{Records: []RawPropertyRecord{
		{Tag: MakeTag("eGLO"), Length: 4, Data: putBE32(0x00010000)},
	}}

	_, err := NewDecoder(testLogger(t)).DecodeDocument(raw)
	if !errors.Is(err, ErrBadValue) {
		t.Errorf("error %v does not wrap ErrBadValue", err)
	}
}

func TestDecodePascalPrefixedString(t *testing.T) {
	// Pascal length prefix wins when it is self-consistent.
	raw := RawDocument{Records: []RawPropertyRecord{
		{Tag: MakeTag("name"), Length: 6, Data: []byte{5, 'H', 'e', 'l', 'l', 'o'}},
	}}

	doc, err := NewDecoder(testLogger(t)).DecodeDocument(raw)
	if err != nil {
		t.Fatalf("DecodeDocument failed: %v", err)
	}
	if doc.Properties[0].Value != StringValue("Hello") {
		t.Errorf("value = %#v, want %q", doc.Properties[0].Value, "Hello")
	}
}
