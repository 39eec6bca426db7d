package model

import (
	"math"
	"math/rand"
	"sort"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/floats"

	"github.com/craigthomas/NLMT-sub001/corpus"
	"github.com/craigthomas/NLMT-sub001/sstable"
	"github.com/craigthomas/NLMT-sub001/util"
)

func init() {
	Register("hlda", NewHLDA)
}

// HLDA infers a topic hierarchy with a nested Chinese Restaurant
// Process prior. Each document owns a root-to-leaf path through the
// topic tree and a per-token level assignment; gibbs sweeps resample
// the path against all other documents' paths and the levels against
// a stick-breaking prior.
type HLDA struct {
	Data  *corpus.Corpus
	Beta  float32 // topic-word smoothing
	Gamma float64 // nCRP new-child concentration
	Eta   float64 // stick-breaking level prior
	Depth uint32  // fixed path length

	tree   *tree
	paths  [][]uint32            // per document, node id at each level
	levels [][]uint32            // per document, level of each token
	Dl     *sstable.Uint32Matrix // doc-level count table

	seed  int64
	rng   *rand.Rand
	state state
}

// TopicNode is a read-only snapshot of one node of the trained tree
type TopicNode struct {
	Id         uint32
	Parent     uint32
	Children   []uint32
	DocCount   uint32
	TokenCount uint32
}

// one enumerated path choice: existing node ids with the newChild
// sentinel marking positions where a fresh node would be created
type pathCandidate struct {
	nodes []uint32
	logp  float64
}

// NewHLDA creates a hierarchical LDA instance. The corpus must be
// non-empty and depth, beta, gamma and eta positive, otherwise
// ErrInvalidConfiguration is returned.
func NewHLDA(dat *corpus.Corpus, cfg Config) (Model, error) {
	if err := cfg.validateHierarchical(); err != nil {
		return nil, err
	}
	if dat == nil || dat.DocNum == 0 || dat.VocabSize == 0 {
		return nil, ErrInvalidConfiguration
	}
	return &HLDA{
		Data:   dat,
		Beta:   cfg.Beta,
		Gamma:  cfg.Gamma,
		Eta:    cfg.Eta,
		Depth:  cfg.Depth,
		tree:   newTree(dat.VocabSize),
		paths:  make([][]uint32, dat.DocNum),
		levels: make([][]uint32, dat.DocNum),
		Dl:     sstable.NewUint32Matrix(dat.DocNum, cfg.Depth),
		seed:   cfg.Seed,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (this *HLDA) Init() {
	// assign each token a uniformly random level, then seat each
	// document on a path drawn from the nCRP given the documents
	// placed before it
	for d := range this.Data.Docs {
		words := this.Data.Docs[d]
		this.levels[d] = make([]uint32, len(words))
		this.paths[d] = make([]uint32, this.Depth)
		for i := range words {
			l := uint32(this.rng.Int31n(int32(this.Depth)))
			this.levels[d][i] = l
			this.Dl.Incr(uint32(d), l, uint32(1))
		}
		this.samplePath(uint32(d))
		this.addDoc(uint32(d))
	}
	this.state = stateInitialized
}

// Step performs one full sweep: for every document, resample its
// path through the tree, then resample every token's level
func (this *HLDA) Step() {
	if this.state == stateUninitialized {
		this.Init()
	}
	this.state = stateSampling

	for d := uint32(0); d < this.Data.DocNum; d += 1 {
		this.removeDoc(d)
		this.samplePath(d)
		this.addDoc(d)
		this.sampleLevels(d)
	}
}

// Train runs iter full sweeps, the iteration budget being the sole
// termination criterion
func (this *HLDA) Train(iter int) {
	if this.state == stateUninitialized {
		this.Init()
	}
	for iterIdx := 0; iterIdx < iter; iterIdx += 1 {
		if iterIdx%10 == 0 {
			log.Infof("iter %5d, topics %d, likelihood %f",
				iterIdx, len(this.tree.nodes), this.Likelihood())
		}
		this.Step()
	}
	this.state = stateConverged
}

// removeDoc takes document d off the tree: its word counts leave the
// nodes of its path, the path's document counts drop and emptied
// nodes are pruned leaf-first
func (this *HLDA) removeDoc(d uint32) {
	path := this.paths[d]
	for i, w := range this.Data.Docs[d] {
		nd := this.tree.node(path[this.levels[d][i]])
		nd.wordCount[w] -= 1
		nd.total -= 1
	}
	for _, id := range path {
		this.tree.node(id).docCount -= 1
	}
	this.tree.prune(path[this.Depth-1])
}

// addDoc seats document d on its current path
func (this *HLDA) addDoc(d uint32) {
	path := this.paths[d]
	for _, id := range path {
		this.tree.node(id).docCount += 1
	}
	for i, w := range this.Data.Docs[d] {
		nd := this.tree.node(path[this.levels[d][i]])
		nd.wordCount[w] += 1
		nd.total += 1
	}
}

// levelWordCounts builds the per-level word histogram of document d
// from its current level assignments
func (this *HLDA) levelWordCounts(d uint32) [][]uint32 {
	lw := make([][]uint32, this.Depth)
	for l := uint32(0); l < this.Depth; l += 1 {
		lw[l] = make([]uint32, this.Data.VocabSize)
	}
	for i, w := range this.Data.Docs[d] {
		lw[this.levels[d][i]][w] += 1
	}
	return lw
}

// samplePath draws a new root-to-leaf path for document d from the
// product of the nCRP prior and the Dirichlet-multinomial likelihood
// of the document's per-level word counts, enumerated over the
// prefix tree of existing nodes plus one new-child branch per
// position. The document must not be seated on the tree.
func (this *HLDA) samplePath(d uint32) {
	lw := this.levelWordCounts(d)
	cands := this.enumeratePaths(lw, true)
	choice := cands[this.drawCandidate(cands, this.rng)]

	// instantiate the chosen path, creating at most one new node
	// per level
	path := this.paths[d]
	path[0] = rootId
	cur := rootId
	for l := uint32(1); l < this.Depth; l += 1 {
		id := choice.nodes[l]
		if id == newChild {
			id = this.tree.addChild(cur).id
		}
		path[l] = id
		cur = id
	}
}

// drawCandidate samples one candidate index proportional to
// exponentiated log probabilities
func (this *HLDA) drawCandidate(cands []pathCandidate, rng *rand.Rand) int {
	logps := make([]float64, len(cands))
	for i, c := range cands {
		logps[i] = c.logp
	}
	norm := floats.LogSumExp(logps)

	cumsum := make([]float64, len(cands))
	for i, lp := range logps {
		p := math.Exp(lp - norm)
		if i == 0 {
			cumsum[i] = p
		} else {
			cumsum[i] = cumsum[i-1] + p
		}
	}
	return util.DrawCumulative64(rng, cumsum)
}

// enumeratePaths walks the prefix tree of candidate paths. Each
// existing child is scored with prior n_c/(gamma+N); when allowNew
// is set a single synthetic new-child option with prior
// gamma/(gamma+N) covers all deeper levels at once, since fresh
// nodes have no children to branch over.
func (this *HLDA) enumeratePaths(lw [][]uint32, allowNew bool) []pathCandidate {
	var out []pathCandidate

	var walk func(nd *treeNode, level uint32, logp float64, prefix []uint32)
	walk = func(nd *treeNode, level uint32, logp float64, prefix []uint32) {
		if level == this.Depth-1 {
			nodes := make([]uint32, this.Depth)
			copy(nodes, prefix)
			out = append(out, pathCandidate{nodes: nodes, logp: logp})
			return
		}

		total := float64(this.tree.childDocSum(nd))
		for _, cid := range nd.children {
			child := this.tree.node(cid)
			lp := logp +
				math.Log(float64(child.docCount)/(this.Gamma+total)) +
				this.levelLikelihood(child, lw[level+1])
			walk(child, level+1, lp, append(prefix, cid))
		}

		if !allowNew {
			return
		}
		lp := logp + math.Log(this.Gamma/(this.Gamma+total))
		nodes := make([]uint32, 0, this.Depth)
		nodes = append(nodes, prefix...)
		for j := level + 1; j < this.Depth; j += 1 {
			lp += this.levelLikelihood(nil, lw[j])
			nodes = append(nodes, newChild)
		}
		out = append(out, pathCandidate{nodes: nodes, logp: lp})
	}

	root := this.tree.root()
	prefix := make([]uint32, 1, this.Depth)
	prefix[0] = rootId
	walk(root, 0, this.levelLikelihood(root, lw[0]), prefix)

	return out
}

// levelLikelihood scores the document's word counts at one level
// against a node's word distribution under a collapsed
// Dirichlet-multinomial with beta smoothing. A nil node stands for
// a yet-uncreated child scored against the prior alone. Words are
// visited in ascending id order so the float accumulation is
// deterministic.
func (this *HLDA) levelLikelihood(nd *treeNode, counts []uint32) float64 {
	beta := float64(this.Beta)
	betaV := beta * float64(this.Data.VocabSize)

	n := uint32(0)
	total := float64(0)
	if nd != nil {
		total = float64(nd.total)
	}
	lp := float64(0)
	for w, cnt := range counts {
		if cnt == 0 {
			continue
		}
		n += cnt
		cw := float64(0)
		if nd != nil {
			cw = float64(nd.wordCount[w])
		}
		lp += lgamma(cw+float64(cnt)+beta) - lgamma(cw+beta)
	}
	lp += lgamma(total+betaV) - lgamma(total+float64(n)+betaV)
	return lp
}

// sampleLevels resamples the level of every token of document d
// along its fixed current path. The prior is a collapsed
// stick-breaking GEM(eta): level l is reached by passing levels
// 0..l-1 and stopping at l, with Beta(1+n_l, eta+n_>l) expectations
// from the document's own level histogram; the last level takes the
// remaining stick so the prior always normalizes.
func (this *HLDA) sampleLevels(d uint32) {
	path := this.paths[d]
	betaV := float64(this.Beta) * float64(this.Data.VocabSize)
	cumsum := make([]float64, this.Depth)

	for i, w := range this.Data.Docs[d] {
		l := this.levels[d][i]
		nd := this.tree.node(path[l])
		nd.wordCount[w] -= 1
		nd.total -= 1
		this.Dl.Decr(d, l, uint32(1))

		// suffix counts n_>=lev of the level histogram
		nge := make([]uint32, this.Depth+1)
		for lev := int(this.Depth) - 1; lev >= 0; lev -= 1 {
			nge[lev] = nge[lev+1] + this.Dl.Get(d, uint32(lev))
		}

		pass := float64(1.0)
		for lev := uint32(0); lev < this.Depth; lev += 1 {
			nl := float64(this.Dl.Get(d, lev))
			stop := float64(1.0)
			if lev < this.Depth-1 {
				stop = (1.0 + nl) / (1.0 + this.Eta + float64(nge[lev]))
			}
			prior := pass * stop
			pass *= (this.Eta + float64(nge[lev+1])) /
				(1.0 + this.Eta + float64(nge[lev]))

			cand := this.tree.node(path[lev])
			like := (float64(cand.wordCount[w]) + float64(this.Beta)) /
				(float64(cand.total) + betaV)

			p := prior * like
			if lev == 0 {
				cumsum[lev] = p
			} else {
				cumsum[lev] = cumsum[lev-1] + p
			}
		}
		l = uint32(util.DrawCumulative64(this.rng, cumsum))

		nd = this.tree.node(path[l])
		nd.wordCount[w] += 1
		nd.total += 1
		this.Dl.Incr(d, l, uint32(1))
		this.levels[d][i] = l
	}
}

// Likelihood is the per-token log likelihood of the corpus under the
// current assignments, a cheap progress diagnostic
func (this *HLDA) Likelihood() float64 {
	betaV := float64(this.Beta) * float64(this.Data.VocabSize)
	sum := float64(0.0)
	for d, words := range this.Data.Docs {
		path := this.paths[d]
		if path == nil {
			return math.Inf(-1)
		}
		for i, w := range words {
			nd := this.tree.node(path[this.levels[d][i]])
			sum += math.Log((float64(nd.wordCount[w]) + float64(this.Beta)) /
				(float64(nd.total) + betaV))
		}
	}
	return sum
}

// TopTerms returns the n vocabulary ids with the highest smoothed
// weight under topic node id, ties broken by ascending id. Unknown
// or empty nodes yield an empty result.
func (this *HLDA) TopTerms(id uint32, n int) []uint32 {
	nd := this.tree.node(id)
	if nd == nil || n <= 0 || nd.total == 0 {
		return nil
	}

	ids := make([]uint32, this.Data.VocabSize)
	for v := uint32(0); v < this.Data.VocabSize; v += 1 {
		ids[v] = v
	}
	sort.SliceStable(ids, func(i, j int) bool {
		ci := nd.wordCount[ids[i]]
		cj := nd.wordCount[ids[j]]
		if ci != cj {
			return ci > cj
		}
		return ids[i] < ids[j]
	})

	if n > len(ids) {
		n = len(ids)
	}
	return ids[:n]
}

// TopicWordDistribution returns the smoothed word distribution of
// one topic node, or nil for unknown nodes
func (this *HLDA) TopicWordDistribution(id uint32) []float32 {
	nd := this.tree.node(id)
	if nd == nil {
		return nil
	}
	betaV := float64(this.Beta) * float64(this.Data.VocabSize)
	out := make([]float32, this.Data.VocabSize)
	for w := uint32(0); w < this.Data.VocabSize; w += 1 {
		out[w] = float32((float64(nd.wordCount[w]) + float64(this.Beta)) /
			(float64(nd.total) + betaV))
	}
	return out
}

// Tree returns a snapshot of the topic hierarchy in ascending node
// id order so callers can render it
func (this *HLDA) Tree() []TopicNode {
	ids := this.tree.sortedIds()
	out := make([]TopicNode, 0, len(ids))
	for _, id := range ids {
		nd := this.tree.node(id)
		children := make([]uint32, len(nd.children))
		copy(children, nd.children)
		out = append(out, TopicNode{
			Id:         nd.id,
			Parent:     nd.parent,
			Children:   children,
			DocCount:   nd.docCount,
			TokenCount: nd.total,
		})
	}
	return out
}

// Topics lists the nodes whose document count reaches minDocs,
// ordered by descending document count then ascending id, each with
// its n top terms
func (this *HLDA) Topics(n int, minDocs uint32) []TopicSummary {
	ids := this.tree.sortedIds()
	var out []TopicSummary
	for _, id := range ids {
		nd := this.tree.node(id)
		if nd.docCount < minDocs {
			continue
		}
		out = append(out, TopicSummary{
			Id:       id,
			DocCount: nd.docCount,
			Terms:    this.TopTerms(id, n),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DocCount != out[j].DocCount {
			return out[i].DocCount > out[j].DocCount
		}
		return out[i].Id < out[j].Id
	})
	return out
}

type TopicSummary struct {
	Id       uint32
	DocCount uint32
	Terms    []uint32
}

// Path returns the node ids of document d's current path
func (this *HLDA) Path(d uint32) []uint32 {
	if d >= this.Data.DocNum || this.paths[d] == nil {
		return nil
	}
	out := make([]uint32, this.Depth)
	copy(out, this.paths[d])
	return out
}

// DocLevelDistribution returns the smoothed level mixture of a
// training document
func (this *HLDA) DocLevelDistribution(d uint32) []float32 {
	if d >= this.Data.DocNum {
		return nil
	}
	counts := make([]float64, this.Depth)
	for l := uint32(0); l < this.Depth; l += 1 {
		counts[l] = float64(this.Dl.Get(d, l)) + this.Eta
	}
	norm := floats.Sum(counts)
	out := make([]float32, this.Depth)
	for l := range counts {
		out[l] = float32(counts[l] / norm)
	}
	return out
}

// Infer estimates the level mixture of an unseen document by a
// restricted sweep: the tree is frozen, candidate paths are limited
// to existing nodes and no shared count is mutated
func (this *HLDA) Infer(doc []uint32, iter int) ([]float32, error) {
	_, mixture, err := this.InferPath(doc, iter)
	return mixture, err
}

// InferPath runs the restricted sweep and also reports the sampled
// path through the existing tree
func (this *HLDA) InferPath(doc []uint32, iter int) ([]uint32, []float32, error) {
	if this.state != stateConverged {
		return nil, nil, ErrNotTrained
	}
	for _, w := range doc {
		if w >= this.Data.VocabSize {
			return nil, nil, ErrInvalidToken
		}
	}

	rng := rand.New(rand.NewSource(this.seed + 1))

	levels := make([]uint32, len(doc))
	dl := make([]uint32, this.Depth)
	for i := range doc {
		l := uint32(rng.Int31n(int32(this.Depth)))
		levels[i] = l
		dl[l] += uint32(1)
	}

	lw := make([][]uint32, this.Depth)
	for l := uint32(0); l < this.Depth; l += 1 {
		lw[l] = make([]uint32, this.Data.VocabSize)
	}
	for i, w := range doc {
		lw[levels[i]][w] += 1
	}

	path := make([]uint32, this.Depth)
	betaV := float64(this.Beta) * float64(this.Data.VocabSize)
	cumsum := make([]float64, this.Depth)

	for it := 0; it <= iter; it += 1 {
		// resample the path over existing nodes only
		cands := this.enumeratePaths(lw, false)
		copy(path, cands[this.drawCandidate(cands, rng)].nodes)
		if it == iter {
			break
		}

		// resample levels against the frozen node statistics
		for i, w := range doc {
			l := levels[i]
			dl[l] -= uint32(1)
			lw[l][w] -= 1

			nge := make([]uint32, this.Depth+1)
			for lev := int(this.Depth) - 1; lev >= 0; lev -= 1 {
				nge[lev] = nge[lev+1] + dl[lev]
			}

			pass := float64(1.0)
			for lev := uint32(0); lev < this.Depth; lev += 1 {
				nl := float64(dl[lev])
				stop := float64(1.0)
				if lev < this.Depth-1 {
					stop = (1.0 + nl) / (1.0 + this.Eta + float64(nge[lev]))
				}
				prior := pass * stop
				pass *= (this.Eta + float64(nge[lev+1])) /
					(1.0 + this.Eta + float64(nge[lev]))

				cand := this.tree.node(path[lev])
				like := (float64(cand.wordCount[w]) + float64(this.Beta)) /
					(float64(cand.total) + betaV)

				p := prior * like
				if lev == 0 {
					cumsum[lev] = p
				} else {
					cumsum[lev] = cumsum[lev-1] + p
				}
			}
			l = uint32(util.DrawCumulative64(rng, cumsum))

			dl[l] += uint32(1)
			lw[l][w] += 1
			levels[i] = l
		}
	}

	counts := make([]float64, this.Depth)
	for l := uint32(0); l < this.Depth; l += 1 {
		counts[l] = float64(dl[l]) + this.Eta
	}
	norm := floats.Sum(counts)
	mixture := make([]float32, this.Depth)
	for l := range counts {
		mixture[l] = float32(counts[l] / norm)
	}
	return path, mixture, nil
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
