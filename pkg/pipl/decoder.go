package pipl

import (
	"github.com/hashicorp/go-hclog"
)

// Decoder turns raw property records into canonical properties by
// dispatching on the registry. Unknown tags decode to a raw byte fallback
// and are never an error; a registered fixed-width tag whose payload length
// does not match its declared width fails with a DecodeError.
type Decoder struct {
	logger hclog.Logger
}

// NewDecoder creates a decoder.
func NewDecoder(logger hclog.Logger) *Decoder {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Decoder{logger: logger}
}

// DecodeDocument decodes every record of raw in emission order.
func (d *Decoder) DecodeDocument(raw RawDocument) (Document, error) {
	props := make([]Property, 0, len(raw.Records))
	for _, rec := range raw.Records {
		prop, err := d.decodeRecord(rec)
		if err != nil {
			return Document{}, err
		}
		props = append(props, prop)
	}
	d.logger.Debug("decoded document", "id", raw.ID, "name", raw.Name, "properties", len(props))
	return Document{ID: raw.ID, Name: raw.Name, Properties: props}, nil
}

func (d *Decoder) decodeRecord(rec RawPropertyRecord) (Property, error) {
	info, ok := LookupTag(rec.Tag)
	if !ok {
		d.logger.Trace("unregistered tag, keeping raw bytes", "tag", rec.TagString(), "length", rec.Length)
		return Property{Tag: rec.Tag, Name: rec.TagString(), Value: RawValue(rec.Data)}, nil
	}

	if info.Width > 0 && len(rec.Data) != info.Width {
		return Property{}, decodeErrf(rec.TagString(), "payload length %d, declared width %d", len(rec.Data), info.Width)
	}

	var value Value
	switch info.Class {
	case ClassKind:
		var code [4]byte
		copy(code[:], rec.Data)
		if name, ok := KindName(code); ok {
			value = SymbolValue(name)
		} else {
			// Unknown kind codes survive round trips as raw bytes.
			value = RawValue(rec.Data)
		}

	case ClassString:
		value = StringValue(decodeMacText(rec.Data))

	case ClassEntryPoint:
		if len(rec.Data) == 0 {
			value = EntryPointValue{Platform: info.Platform}
		} else {
			value = EntryPointValue{
				Platform: rec.Data[0],
				Symbol:   decodeMacText(rec.Data[1:]),
			}
		}

	case ClassIntPair:
		hi, _ := readBE16(rec.Data, 0)
		lo, _ := readBE16(rec.Data, 2)
		value = IntListValue{uint32(hi), uint32(lo)}

	case ClassVersion:
		word, _ := readBE32(rec.Data, 0)
		value = VersionValue(UnpackVersion(word))

	case ClassInt32:
		word, _ := readBE32(rec.Data, 0)
		value = IntValue(word)

	case ClassFlags:
		word, _ := readBE32(rec.Data, 0)
		names, err := info.Flags.Decompose(word)
		if err != nil {
			return Property{}, err
		}
		value = FlagsValue(names)

	default:
		value = RawValue(rec.Data)
	}

	return Property{Tag: rec.Tag, Name: info.Field, Value: value}, nil
}

// decodeMacText decodes legacy Mac-compatible property text: a leading
// Pascal length prefix is honored when self-consistent, otherwise trailing
// NUL padding is trimmed.
func decodeMacText(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if n := int(data[0]); n > 0 && n < len(data) {
		return macRoman(data[1 : 1+n])
	}
	end := len(data)
	for end > 0 && data[end-1] == 0 {
		end--
	}
	return macRoman(data[:end])
}
