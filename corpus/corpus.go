package corpus

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	log "github.com/golang/glog"
)

// Corpus holds integer-coded documents. Each document is an ordered
// sequence of vocabulary ids and documents are identified by their
// index in Docs. The corpus is immutable once a sampler has been
// initialized on it.
type Corpus struct {
	VocabSize uint32
	DocNum    uint32
	Docs      [][]uint32
}

type WordCount struct {
	WordId uint32
	Count  uint32
}

// ExpandWords flattens a word-count bag into an ordered token sequence
func ExpandWords(wcs []*WordCount) []uint32 {
	var words []uint32
	for _, wc := range wcs {
		for i := uint32(0); i < wc.Count; i += 1 {
			words = append(words, wc.WordId)
		}
	}
	return words
}

// AddDoc appends an already integer-coded document and grows the
// vocabulary size to cover its largest word id
func (this *Corpus) AddDoc(words []uint32) {
	for _, w := range words {
		if w+1 > this.VocabSize {
			this.VocabSize = w + 1
		}
	}
	this.Docs = append(this.Docs, words)
	this.DocNum += uint32(1)
}

// load training data from file, the file format should be like:
// [docId wordId:wordCount wordId:wordCount ... wordId:wordCount]
// the leading docId must be numeric but documents are indexed by
// line order, not by it. Malformed lines are logged and skipped.
// Word-count bags are expanded into ordered token sequences once
// here so the samplers can index tokens by position
func (this *Corpus) Load(fn string) error {
	f, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer f.Close()

	vocabMaxId := uint32(0)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		vals := strings.Split(line, " ")
		if len(vals) < 2 {
			log.Infof("bad document: %s", line)
			continue
		}
		if _, err := strconv.ParseUint(vals[0], 10, 32); err != nil {
			log.Infof("bad document id: %s", vals[0])
			continue
		}

		var wcs []*WordCount
		for _, kv := range vals[1:] {
			wc := strings.Split(kv, ":")
			if len(wc) != 2 {
				log.Infof("bad word count: %s", kv)
				continue
			}

			wordId, err := strconv.ParseUint(wc[0], 10, 32)
			if err != nil {
				return err
			}

			count, err := strconv.ParseUint(wc[1], 10, 32)
			if err != nil {
				return err
			}

			wcs = append(wcs, &WordCount{
				WordId: uint32(wordId),
				Count:  uint32(count),
			})
			if uint32(wordId) > vocabMaxId {
				vocabMaxId = uint32(wordId)
			}
		}
		if len(wcs) == 0 {
			continue
		}

		this.Docs = append(this.Docs, ExpandWords(wcs))
		this.DocNum += uint32(1)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if vocabMaxId+1 > this.VocabSize {
		this.VocabSize = vocabMaxId + 1
	}

	log.Infof("number of documents %d", this.DocNum)
	log.Infof("vocabulary size %d", this.VocabSize)

	return nil
}
