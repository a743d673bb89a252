package psd

import (
	"github.com/pkg/errors"
)

// TaggedBlock is one entry of the "additional layer information" stream
// that threads through layer records, the global layer-and-mask section,
// and (in PSB) the end of the merged image section (component H).
type TaggedBlock struct {
	Key  string // 4-byte code, e.g. "luni", "lyid", "lsct"
	Data []byte
	Big  bool // true if this block's signature was "8B64"
}

// bigKeys is the closed set of tagged-block keys that use a 64-bit length
// field when the document version is 2 (PSB), instead of the usual
// 32-bit field every other key always uses. Ported from the reference
// implementation's TaggedBlock._BIG_KEYS, since the teacher never
// implemented this rule at all (it always read a u32 length).
var bigKeys = map[string]bool{
	"LMsk": true, // USER_MASK
	"Lr16": true, // LAYER_16
	"Lr32": true, // LAYER_32
	"Layr": true, // LAYER
	"Mt16": true, // SAVING_MERGED_TRANSPARENCY16
	"Mt32": true, // SAVING_MERGED_TRANSPARENCY32
	"Mtrn": true, // SAVING_MERGED_TRANSPARENCY
	"Alph": true, // ALPHA
	"FMsk": true, // FILTER_MASK
	"lnk2": true, // LINKED_LAYER2
	"lnkE": true, // LINKED_LAYER_EXTERNAL
	"FEid": true, // FILTER_EFFECTS1
	"FXid": true, // FILTER_EFFECTS2
	"PxSD": true, // PIXEL_SOURCE_DATA2
	"ucnm": true, // UNICODE_PATH_NAME (as used in some readers; tolerated)
	"extd": true, // EXPORT_SETTING1
	"extN": true, // EXPORT_SETTING2
	"CInf": true, // COMPUTER_INFO
}

// ReadTaggedBlocks reads tagged blocks until the stream position reaches
// end. big is true only for a version-2/PSB document (spec.md §4.H); a
// block then uses a 64-bit length when its key is in bigKeys, whichever
// of "8BIM"/"8B64" its signature is. With big false every length is
// 32-bit.
func ReadTaggedBlocks(r *Reader, end int64, big bool) ([]TaggedBlock, error) {
	var blocks []TaggedBlock
	for r.Tell() < end {
		// Tolerate trailing padding shorter than a full signature.
		if end-r.Tell() < 8 {
			break
		}
		block, err := readTaggedBlock(r, big)
		if err != nil {
			return nil, wrapf(err, "tagged block at offset %d", r.Tell())
		}
		blocks = append(blocks, *block)
	}
	return blocks, nil
}

func readTaggedBlock(r *Reader, docIsBig bool) (*TaggedBlock, error) {
	sig, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	sigStr := string(sig)
	if sigStr != "8BIM" && sigStr != "8B64" {
		return nil, newParseError(ErrKindMalformed, "tagged-block", r.Tell(), errors.Errorf("bad tagged block signature %q", sig))
	}

	key, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	keyStr := string(key)

	useBig := docIsBig && bigKeys[keyStr]
	length, err := r.ReadLength(useBig)
	if err != nil {
		return nil, err
	}

	data, err := r.ReadBytes(int(length))
	if err != nil {
		return nil, newParseError(ErrKindTruncated, "tagged-block:"+keyStr, r.Tell(), err)
	}

	// Tagged block bodies pad to a 2-byte boundary (an inverted rule from
	// the layer-and-mask section's own 4-byte padding, which is why the
	// reference implementation calls it out explicitly).
	if length%2 != 0 {
		if err := r.Skip(1); err != nil {
			return nil, err
		}
	}

	return &TaggedBlock{Key: keyStr, Data: data, Big: sigStr == "8B64"}, nil
}

// WriteTaggedBlocks writes out a list of tagged blocks, choosing the
// length-field width the same way ReadTaggedBlocks chose it.
func WriteTaggedBlocks(w *Writer, blocks []TaggedBlock, docIsBig bool) error {
	for _, b := range blocks {
		sig := "8BIM"
		if b.Big {
			sig = "8B64"
		}
		if _, err := w.Write([]byte(sig)); err != nil {
			return err
		}
		if _, err := w.Write([]byte(b.Key)); err != nil {
			return err
		}
		useBig := docIsBig && bigKeys[b.Key]
		if err := w.WriteLength(useBig, uint64(len(b.Data))); err != nil {
			return err
		}
		if _, err := w.Write(b.Data); err != nil {
			return err
		}
		if len(b.Data)%2 != 0 {
			if err := w.WritePad(1); err != nil {
				return err
			}
		}
	}
	return nil
}

// FindTaggedBlock returns the first block with the given key.
func FindTaggedBlock(blocks []TaggedBlock, key string) (*TaggedBlock, bool) {
	for i := range blocks {
		if blocks[i].Key == key {
			return &blocks[i], true
		}
	}
	return nil, false
}
