package embedding

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
	// CountTokens returns the untruncated token count including [CLS] and [SEP].
	CountTokens(text string) int
}

const (
	clsID = 101
	sepID = 102
)

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs (for testing or fallback).
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	words := SplitWords(text)
	ids := make([]int64, len(words))
	for i, w := range words {
		ids[i] = int64(HashString(w) % 30000)
	}
	return pack(ids, clsID, sepID, maxTokens)
}

// CountTokens returns the number of words plus the two special tokens.
func (t *SimpleTokenizer) CountTokens(text string) int {
	return len(SplitWords(text)) + 2
}

// WordPieceTokenizer implements BERT WordPiece over a vocab.txt file.
type WordPieceTokenizer struct {
	vocab     map[string]int64
	lowercase bool
	unkID     int64
	clsID     int64
	sepID     int64
}

// LoadWordPieceTokenizer reads a vocab.txt (one token per line, id = line number).
func LoadWordPieceTokenizer(path string, lowercase bool) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var id int64
	for sc.Scan() {
		vocab[strings.TrimRight(sc.Text(), "\r")] = id
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	t := &WordPieceTokenizer{vocab: vocab, lowercase: lowercase, unkID: 100, clsID: clsID, sepID: sepID}
	if v, ok := vocab["[UNK]"]; ok {
		t.unkID = v
	}
	if v, ok := vocab["[CLS]"]; ok {
		t.clsID = v
	}
	if v, ok := vocab["[SEP]"]; ok {
		t.sepID = v
	}
	return t, nil
}

// Tokenize produces WordPiece ids wrapped in [CLS] ... [SEP], truncated and padded to maxTokens.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	return pack(t.ids(text), t.clsID, t.sepID, maxTokens)
}

// CountTokens returns the number of WordPiece tokens plus [CLS] and [SEP].
func (t *WordPieceTokenizer) CountTokens(text string) int {
	return len(t.ids(text)) + 2
}

func (t *WordPieceTokenizer) ids(text string) []int64 {
	if t.lowercase {
		text = strings.ToLower(text)
	}
	var ids []int64
	for _, word := range SplitWords(text) {
		ids = append(ids, t.wordPieces(word)...)
	}
	return ids
}

// wordPieces splits word greedily into the longest vocab prefixes, continuation pieces prefixed "##".
func (t *WordPieceTokenizer) wordPieces(word string) []int64 {
	runes := []rune(word)
	var pieces []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		found := int64(-1)
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := t.vocab[sub]; ok {
				found = id
				break
			}
			end--
		}
		if found < 0 {
			return []int64{t.unkID}
		}
		pieces = append(pieces, found)
		start = end
	}
	return pieces
}

// pack wraps ids in cls/sep and pads to maxTokens.
func pack(ids []int64, cls, sep int64, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = cls
	attentionMask[0] = 1

	pos := 1
	for _, id := range ids {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = id
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sep
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// SplitWords splits text on whitespace and emits each punctuation or symbol rune as its own token.
func SplitWords(text string) []string {
	var words []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			word.WriteRune(r)
		}
	}
	flush()
	return words
}

// HashString returns a deterministic hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
