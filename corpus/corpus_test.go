package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandWords(t *testing.T) {
	wcs := []*WordCount{
		{WordId: 3, Count: 2},
		{WordId: 1, Count: 1},
	}
	assert.Equal(t, []uint32{3, 3, 1}, ExpandWords(wcs))
}

func TestAddDoc(t *testing.T) {
	c := &Corpus{}
	c.AddDoc([]uint32{0, 2, 2})
	c.AddDoc([]uint32{5})

	assert.Equal(t, uint32(2), c.DocNum)
	assert.Equal(t, uint32(6), c.VocabSize)
	assert.Equal(t, []uint32{0, 2, 2}, c.Docs[0])
}

func TestCorpusLoad(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "train.txt")
	content := "0 0:2 1:1\n1 2:3\nbadline\n"
	assert.NoError(t, os.WriteFile(fn, []byte(content), 0644))

	c := &Corpus{}
	assert.NoError(t, c.Load(fn))

	assert.Equal(t, uint32(2), c.DocNum)
	assert.Equal(t, uint32(3), c.VocabSize)
	assert.Equal(t, []uint32{0, 0, 1}, c.Docs[0])
	assert.Equal(t, []uint32{2, 2, 2}, c.Docs[1])
}

func TestCorpusLoadDocIdColumn(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "train.txt")
	// line position, not the leading column, decides the document
	// index; a non-numeric id invalidates the whole line
	content := "7 0:1\n3 1:2\nx 2:1\n"
	assert.NoError(t, os.WriteFile(fn, []byte(content), 0644))

	c := &Corpus{}
	assert.NoError(t, c.Load(fn))

	assert.Equal(t, uint32(2), c.DocNum)
	assert.Equal(t, uint32(2), c.VocabSize)
	assert.Equal(t, []uint32{0}, c.Docs[0])
	assert.Equal(t, []uint32{1, 1}, c.Docs[1])
}

func TestVocabulary(t *testing.T) {
	v := NewVocabulary()

	assert.Equal(t, uint32(0), v.Add("alpha"))
	assert.Equal(t, uint32(1), v.Add("beta"))
	// re-adding returns the stable id
	assert.Equal(t, uint32(0), v.Add("alpha"))

	id, ok := v.Id("beta")
	assert.True(t, ok)
	assert.Equal(t, uint32(1), id)

	_, ok = v.Id("gamma")
	assert.False(t, ok)

	assert.Equal(t, "alpha", v.Token(0))
	assert.Equal(t, "", v.Token(42))
	assert.Equal(t, uint32(2), v.Size())
}

func TestVocabularyEncode(t *testing.T) {
	v := NewVocabulary()
	words := v.Encode([]string{"a", "b", "a", "c"})
	assert.Equal(t, []uint32{0, 1, 0, 2}, words)
	assert.Equal(t, uint32(3), v.Size())
}

func TestVocabularyLoad(t *testing.T) {
	v := NewVocabulary()
	assert.NoError(t, v.Load(strings.NewReader("cat 10\ndog\n\nbird x\n")))

	assert.Equal(t, uint32(3), v.Size())
	assert.Equal(t, "dog", v.Token(1))
}
