package corpus

import (
	"bufio"
	"io"
	"strings"
)

// Vocabulary maintains the bi-directional mapping between tokens and
// their integer ids. Ids are assigned in insertion order and stay
// stable for the lifetime of the model; the samplers only ever see
// the ids.
type Vocabulary struct {
	Tokens []string
	ids    map[string]uint32
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		ids: make(map[string]uint32),
	}
}

// Add returns the id of token, assigning a fresh id on first sight
func (this *Vocabulary) Add(token string) uint32 {
	if id, ok := this.ids[token]; ok {
		return id
	}
	id := uint32(len(this.Tokens))
	this.ids[token] = id
	this.Tokens = append(this.Tokens, token)
	return id
}

// Id returns the id of token and whether it is known
func (this *Vocabulary) Id(token string) (uint32, bool) {
	id, ok := this.ids[token]
	return id, ok
}

// Token returns the token of id, or the empty string for unknown ids
func (this *Vocabulary) Token(id uint32) string {
	if id >= uint32(len(this.Tokens)) {
		return ""
	}
	return this.Tokens[id]
}

func (this *Vocabulary) Size() uint32 {
	return uint32(len(this.Tokens))
}

// Load reads one token per line, the line number becoming its id.
// Only the first column of each line is taken
func (this *Vocabulary) Load(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fs := strings.Fields(scanner.Text())
		if len(fs) > 0 {
			this.Add(fs[0])
		}
	}
	return scanner.Err()
}

// Encode maps a tokenized document onto vocabulary ids, growing the
// vocabulary as needed
func (this *Vocabulary) Encode(tokens []string) []uint32 {
	words := make([]uint32, 0, len(tokens))
	for _, tok := range tokens {
		words = append(words, this.Add(tok))
	}
	return words
}
