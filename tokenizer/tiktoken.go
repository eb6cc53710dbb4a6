package tokenizer

import (
	"github.com/pkoukk/tiktoken-go"

	ragged "github.com/raggedlab/ragged"
)

// tiktokenCodec wraps an OpenAI BPE encoding. These encodings have no
// special tokens to strip, so Decode is the exact inverse of Encode.
type tiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

var _ ragged.Tokenizer = (*tiktokenCodec)(nil)

func newTiktokenCodec(model string) (ragged.Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return &tiktokenCodec{enc: enc}, nil
}

func (c *tiktokenCodec) Encode(text string) ([]int, error) {
	return c.enc.Encode(text, nil, nil), nil
}

func (c *tiktokenCodec) Decode(ids []int) (string, error) {
	return c.enc.Decode(ids), nil
}

func (c *tiktokenCodec) Count(text string) (int, error) {
	return len(c.enc.Encode(text, nil, nil)), nil
}
