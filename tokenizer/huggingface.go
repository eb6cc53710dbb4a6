package tokenizer

import (
	"fmt"
	"path/filepath"

	hft "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"

	ragged "github.com/raggedlab/ragged"
)

// huggingFaceCodec wraps a HuggingFace tokenizer loaded from a local
// tokenizer.json. Encode adds no special tokens and Decode strips them,
// mirroring AutoTokenizer's add_special_tokens=False on encode and
// skip_special_tokens=True on decode.
type huggingFaceCodec struct {
	tk *hft.Tokenizer
}

var _ ragged.Tokenizer = (*huggingFaceCodec)(nil)

func newHuggingFaceCodec(dir, model string) (ragged.Tokenizer, error) {
	path := filepath.Join(dir, filepath.FromSlash(model), "tokenizer.json")
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &huggingFaceCodec{tk: tk}, nil
}

func (c *huggingFaceCodec) Encode(text string) ([]int, error) {
	en, err := c.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, err
	}
	return en.Ids, nil
}

func (c *huggingFaceCodec) Decode(ids []int) (string, error) {
	return c.tk.Decode(ids, true), nil
}

func (c *huggingFaceCodec) Count(text string) (int, error) {
	en, err := c.tk.EncodeSingle(text, false)
	if err != nil {
		return 0, err
	}
	return len(en.Ids), nil
}
