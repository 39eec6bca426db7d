package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"

	"github.com/craigthomas/NLMT-sub001/corpus"
	"github.com/craigthomas/NLMT-sub001/sstable"
)

func hierConfig(depth uint32, seed int64) Config {
	return Config{
		Beta:  0.01,
		Gamma: 0.5,
		Eta:   1.0,
		Depth: depth,
		Seed:  seed,
	}
}

// two subtopics sharing one parent theme: words 0-1 appear in every
// document, words 2-3 only in the first half, words 4-5 only in the
// second half
func nestedCorpus() *corpus.Corpus {
	dat := &corpus.Corpus{}
	for i := 0; i < 4; i += 1 {
		dat.AddDoc([]uint32{0, 1, 0, 1, 2, 2, 2, 3, 3, 3})
	}
	for i := 0; i < 4; i += 1 {
		dat.AddDoc([]uint32{0, 1, 0, 1, 4, 4, 4, 5, 5, 5})
	}
	return dat
}

func TestNewHLDAInvalidConfiguration(t *testing.T) {
	dat := nestedCorpus()

	cfg := hierConfig(1, 1) // depth below two
	_, err := NewHLDA(dat, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	cfg = hierConfig(3, 1)
	cfg.Gamma = 0
	_, err = NewHLDA(dat, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	cfg = hierConfig(3, 1)
	cfg.Eta = -1
	_, err = NewHLDA(dat, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewHLDA(&corpus.Corpus{}, hierConfig(3, 1))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

// structural invariants that must hold between sweeps
func assertTreeConsistent(t *testing.T, h *HLDA) {
	t.Helper()

	nodes := h.Tree()
	byId := make(map[uint32]TopicNode)
	for _, nd := range nodes {
		byId[nd.Id] = nd
	}

	totalTokens := uint32(0)
	for _, words := range h.Data.Docs {
		totalTokens += uint32(len(words))
	}

	sumTokens := uint32(0)
	for _, nd := range nodes {
		sumTokens += nd.TokenCount
		if nd.Id == rootId {
			assert.Equal(t, h.Data.DocNum, nd.DocCount)
			continue
		}
		parent, ok := byId[nd.Parent]
		assert.True(t, ok)
		// a document passing through a child also passes through
		// its parent
		assert.LessOrEqual(t, nd.DocCount, parent.DocCount)
		// empty nodes must have been pruned
		assert.False(t, nd.DocCount == 0 && nd.TokenCount == 0)
	}
	assert.Equal(t, totalTokens, sumTokens)

	for d := uint32(0); d < h.Data.DocNum; d += 1 {
		assert.Equal(t, uint32(len(h.Data.Docs[d])),
			sstable.Uint32VectorSum(h.Dl.GetRow(d)))

		path := h.Path(d)
		assert.Len(t, path, int(h.Depth))
		assert.Equal(t, rootId, path[0])
		for i, id := range path {
			nd, ok := byId[id]
			assert.True(t, ok)
			if i > 0 {
				assert.Equal(t, path[i-1], nd.Parent)
			}
		}
	}
}

func TestHLDATreeConsistency(t *testing.T) {
	m, err := NewHLDA(nestedCorpus(), hierConfig(3, 7))
	assert.NoError(t, err)
	h := m.(*HLDA)

	h.Init()
	assertTreeConsistent(t, h)

	for i := 0; i < 10; i += 1 {
		h.Step()
		assertTreeConsistent(t, h)
	}
}

func TestHLDADeterminism(t *testing.T) {
	a, err := NewHLDA(nestedCorpus(), hierConfig(3, 42))
	assert.NoError(t, err)
	b, err := NewHLDA(nestedCorpus(), hierConfig(3, 42))
	assert.NoError(t, err)

	a.Train(20)
	b.Train(20)

	ha := a.(*HLDA)
	hb := b.(*HLDA)
	assert.Equal(t, ha.Tree(), hb.Tree())
	assert.Equal(t, ha.levels, hb.levels)
	for d := uint32(0); d < ha.Data.DocNum; d += 1 {
		assert.Equal(t, ha.Path(d), hb.Path(d))
	}
}

// the exponentiated and normalized path scores of an unseated
// document must form a proper probability distribution
func TestHLDAPathDistributionNormalizes(t *testing.T) {
	m, err := NewHLDA(nestedCorpus(), hierConfig(3, 7))
	assert.NoError(t, err)
	h := m.(*HLDA)

	h.Init()
	for i := 0; i < 5; i += 1 {
		h.Step()
	}

	d := uint32(0)
	h.removeDoc(d)
	cands := h.enumeratePaths(h.levelWordCounts(d), true)
	assert.NotEmpty(t, cands)

	logps := make([]float64, len(cands))
	for i, c := range cands {
		logps[i] = c.logp
	}
	norm := floats.LogSumExp(logps)

	sum := float64(0)
	for _, lp := range logps {
		p := math.Exp(lp - norm)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	h.samplePath(d)
	h.addDoc(d)
	assertTreeConsistent(t, h)
}

// the stick-breaking level prior telescopes to a proper distribution
// for any level histogram
func TestHLDALevelPriorNormalizes(t *testing.T) {
	m, err := NewHLDA(nestedCorpus(), hierConfig(4, 3))
	assert.NoError(t, err)
	h := m.(*HLDA)

	dl := []uint32{3, 0, 2, 1}
	nge := make([]uint32, h.Depth+1)
	for lev := int(h.Depth) - 1; lev >= 0; lev -= 1 {
		nge[lev] = nge[lev+1] + dl[lev]
	}

	pass := float64(1.0)
	sum := float64(0)
	for lev := uint32(0); lev < h.Depth; lev += 1 {
		stop := float64(1.0)
		if lev < h.Depth-1 {
			stop = (1.0 + float64(dl[lev])) / (1.0 + h.Eta + float64(nge[lev]))
		}
		sum += pass * stop
		pass *= (h.Eta + float64(nge[lev+1])) /
			(1.0 + h.Eta + float64(nge[lev]))
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestHLDATwoClusterHierarchy(t *testing.T) {
	m, err := NewHLDA(nestedCorpus(), hierConfig(2, 11))
	assert.NoError(t, err)
	m.Train(500)
	h := m.(*HLDA)

	root := h.Tree()[0]
	assert.Equal(t, rootId, root.Id)
	assert.Len(t, root.Children, 2)

	// each child captures one word cluster
	clusterA := []uint32{2, 3}
	clusterB := []uint32{4, 5}
	seenA, seenB := false, false
	for _, cid := range root.Children {
		top := h.TopTerms(cid, 2)
		assert.Len(t, top, 2)
		switch {
		case contains(clusterA, top[0]) && contains(clusterA, top[1]):
			seenA = true
		case contains(clusterB, top[0]) && contains(clusterB, top[1]):
			seenB = true
		}
	}
	assert.True(t, seenA)
	assert.True(t, seenB)
}

func contains(s []uint32, v uint32) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func TestHLDAReadOutsIdempotent(t *testing.T) {
	m, err := NewHLDA(nestedCorpus(), hierConfig(3, 5))
	assert.NoError(t, err)
	m.Train(20)
	h := m.(*HLDA)

	assert.Equal(t, h.Tree(), h.Tree())
	assert.Equal(t, h.Topics(3, 1), h.Topics(3, 1))
	assert.Equal(t, h.TopTerms(rootId, 3), h.TopTerms(rootId, 3))
	assert.Equal(t, h.TopicWordDistribution(rootId), h.TopicWordDistribution(rootId))
}

func TestHLDATopicsFilter(t *testing.T) {
	m, err := NewHLDA(nestedCorpus(), hierConfig(3, 5))
	assert.NoError(t, err)
	m.Train(20)
	h := m.(*HLDA)

	// every node carries at least one document
	all := h.Topics(2, 1)
	assert.Equal(t, len(h.Tree()), len(all))
	// ordered by descending document count, the root comes first
	assert.Equal(t, rootId, all[0].Id)
	assert.Equal(t, h.Data.DocNum, all[0].DocCount)

	// a threshold above the corpus size excludes everything
	assert.Empty(t, h.Topics(2, h.Data.DocNum+1))
}

func TestHLDATopTermsUnknownNode(t *testing.T) {
	m, err := NewHLDA(nestedCorpus(), hierConfig(3, 5))
	assert.NoError(t, err)
	m.Train(5)
	h := m.(*HLDA)

	assert.Empty(t, h.TopTerms(uint32(1<<30), 3))
}

func TestHLDAInfer(t *testing.T) {
	m, err := NewHLDA(nestedCorpus(), hierConfig(2, 9))
	assert.NoError(t, err)

	_, err = m.Infer([]uint32{0, 1}, 5)
	assert.ErrorIs(t, err, ErrNotTrained)

	m.Train(100)
	h := m.(*HLDA)

	before := h.Tree()
	dists := make(map[uint32][]float32)
	for _, nd := range before {
		dists[nd.Id] = h.TopicWordDistribution(nd.Id)
	}
	dl := h.Dl.Clone()

	path, mixture, err := h.InferPath([]uint32{0, 1, 2, 3, 2}, 20)
	assert.NoError(t, err)
	assert.Len(t, path, 2)
	assert.Equal(t, rootId, path[0])
	assert.Len(t, mixture, 2)
	assert.InDelta(t, 1.0, sstable.Float32VectorSum(mixture), 1e-4)

	// the trained tree and its statistics are untouched
	assert.Equal(t, before, h.Tree())
	for _, nd := range before {
		assert.Equal(t, dists[nd.Id], h.TopicWordDistribution(nd.Id))
	}
	assert.True(t, dl.Equal(h.Dl))

	// the sampled path only visits existing nodes
	byId := make(map[uint32]TopicNode)
	for _, nd := range before {
		byId[nd.Id] = nd
	}
	for _, id := range path {
		_, ok := byId[id]
		assert.True(t, ok)
	}

	// repeated inference on the same document is deterministic
	path2, mixture2, err := h.InferPath([]uint32{0, 1, 2, 3, 2}, 20)
	assert.NoError(t, err)
	assert.Equal(t, path, path2)
	assert.Equal(t, mixture, mixture2)
}

func TestHLDAInferInvalidToken(t *testing.T) {
	m, err := NewHLDA(nestedCorpus(), hierConfig(2, 9))
	assert.NoError(t, err)
	m.Train(10)

	_, err = m.Infer([]uint32{0, 6}, 5)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHLDADocLevelDistribution(t *testing.T) {
	m, err := NewHLDA(nestedCorpus(), hierConfig(3, 13))
	assert.NoError(t, err)
	m.Train(20)
	h := m.(*HLDA)

	for d := uint32(0); d < h.Data.DocNum; d += 1 {
		dist := h.DocLevelDistribution(d)
		assert.Len(t, dist, 3)
		assert.InDelta(t, 1.0, sstable.Float32VectorSum(dist), 1e-4)
	}
	assert.Nil(t, h.DocLevelDistribution(h.Data.DocNum))
}
