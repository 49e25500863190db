package pipl

// Decompose splits a flag word into the minimal ordered set of symbolic names
// whose OR equals the word exactly. Table order decides the emission order.
// A word with bits no table entry accounts for fails with a DecodeError.
func (t *FlagTable) Decompose(word uint32) ([]string, error) {
	names := []string{}
	var acc uint32
	for _, b := range t.Bits {
		if b.Mask == 0 || word&b.Mask != b.Mask {
			continue
		}
		if acc&b.Mask == b.Mask {
			// Already covered by earlier entries; keep the set minimal.
			continue
		}
		names = append(names, b.Name)
		acc |= b.Mask
	}
	if acc != word {
		return nil, decodeErrf(t.Field, "unresolved flag bits 0x%08x in word 0x%08x", word&^acc, word)
	}
	return names, nil
}

// Compose ORs the masks of the given symbolic names. An unknown name fails
// with a DecodeError.
func (t *FlagTable) Compose(names []string) (uint32, error) {
	var word uint32
	for _, name := range names {
		mask, ok := t.mask(name)
		if !ok {
			return 0, decodeErrf(t.Field, "unknown flag name %q", name)
		}
		word |= mask
	}
	return word, nil
}

func (t *FlagTable) mask(name string) (uint32, bool) {
	for _, b := range t.Bits {
		if b.Name == name {
			return b.Mask, true
		}
	}
	return 0, false
}
