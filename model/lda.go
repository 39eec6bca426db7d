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
	Register("lda", NewLDA)
}

type LDA struct {
	Data     *corpus.Corpus
	Alpha    float32 // document topic mixture hyperparameter
	Beta     float32 // topic word mixture hyperparameter
	TopicNum uint32

	Wt  *sstable.Uint32Matrix      // word-topic count table
	Dt  *sstable.Uint32Matrix      // doc-topic count table
	Wts *sstable.Uint32Matrix      // word-topic-sum count table
	Dwt map[sstable.DocWord]uint32 // doc-word-topic map

	seed  int64
	rng   *rand.Rand
	state state
}

// NewLDA creates a LDA instance with a collapsed gibbs sampler.
// The corpus must be non-empty and topic number and smoothing
// hyperparameters positive, otherwise ErrInvalidConfiguration
// is returned and no state is retained.
func NewLDA(dat *corpus.Corpus, cfg Config) (Model, error) {
	lda, err := newLDA(dat, cfg)
	if err != nil {
		return nil, err
	}
	return lda, nil
}

func newLDA(dat *corpus.Corpus, cfg Config) (*LDA, error) {
	if err := cfg.validateFlat(); err != nil {
		return nil, err
	}
	if dat == nil || dat.DocNum == 0 || dat.VocabSize == 0 {
		return nil, ErrInvalidConfiguration
	}
	return &LDA{
		Data:     dat,
		Alpha:    cfg.Alpha,
		Beta:     cfg.Beta,
		TopicNum: cfg.TopicNum,
		Wt:       sstable.NewUint32Matrix(dat.VocabSize, cfg.TopicNum),
		Dt:       sstable.NewUint32Matrix(dat.DocNum, cfg.TopicNum),
		Wts:      sstable.NewUint32Matrix(cfg.TopicNum, uint32(1)),
		Dwt:      make(map[sstable.DocWord]uint32),
		seed:     cfg.Seed,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (this *LDA) Init() {
	// randomly assign topic to word
	dw := sstable.DocWord{}
	for doc, words := range this.Data.Docs {
		for i, w := range words {
			// sample word topic
			k := uint32(this.rng.Int31n(int32(this.TopicNum)))

			// update sufficient statistics
			this.Wt.Incr(w, k, uint32(1))
			this.Dt.Incr(uint32(doc), k, uint32(1))
			this.Wts.Incr(k, uint32(0), uint32(1))

			// update doc word topic assignment
			dw.DocId = uint32(doc)
			dw.WordIdx = uint32(i)
			this.Dwt[dw] = k
		}
	}
	this.state = stateInitialized
}

// Step performs one full collapsed gibbs sweep in document order:
// each token's assignment is removed from the count tables, a new
// topic is drawn from the conditional posterior and the tables are
// updated in place
func (this *LDA) Step() {
	if this.state == stateUninitialized {
		this.Init()
	}
	this.state = stateSampling

	dw := sstable.DocWord{}
	cumsum := make([]float32, this.TopicNum)
	for doc, words := range this.Data.Docs {
		for i, w := range words {
			// get the current topic of word w
			dw.DocId = uint32(doc)
			dw.WordIdx = uint32(i)
			k := this.Dwt[dw]

			// decrease corresponding sufficient statistics
			this.Wt.Decr(w, k, uint32(1))
			this.Dt.Decr(uint32(doc), k, uint32(1))
			this.Wts.Decr(k, uint32(0), uint32(1))

			// resample the topic
			for kidx := uint32(0); kidx < this.TopicNum; kidx += 1 {
				docPart := this.Alpha + float32(this.Dt.Get(uint32(doc), kidx))
				wordPart := (this.Beta + float32(this.Wt.Get(w, kidx))) /
					(float32(this.Wts.Get(kidx, uint32(0))) +
						this.Beta*float32(this.Data.VocabSize))
				if kidx == 0 {
					cumsum[kidx] = docPart * wordPart
				} else {
					cumsum[kidx] = cumsum[kidx-1] + docPart*wordPart
				}
			}
			k = util.DrawCumulative(this.rng, cumsum)

			// increase corresponding sufficient statistics
			this.Wt.Incr(w, k, uint32(1))
			this.Dt.Incr(uint32(doc), k, uint32(1))
			this.Wts.Incr(k, uint32(0), uint32(1))
			this.Dwt[dw] = k
		}
	}
}

// Train runs iter full sweeps. The iteration count is the sole
// termination criterion, no convergence diagnostic is applied.
func (this *LDA) Train(iter int) {
	if this.state == stateUninitialized {
		this.Init()
	}
	for iterIdx := 0; iterIdx < iter; iterIdx += 1 {
		if iterIdx%10 == 0 {
			log.Infof("iter %5d, likelihood %f", iterIdx, this.Likelihood())
		}
		this.Step()
	}
	this.state = stateConverged
}

// compute the posterior point estimation of word-topic mixture
// beta (Dirichlet prior) + data -> phi
func (this *LDA) Phi() *sstable.Float32Matrix {
	phi := sstable.NewFloat32Matrix(this.Data.VocabSize, this.TopicNum)

	for k := uint32(0); k < this.TopicNum; k += 1 {
		sum := this.Wts.Get(k, uint32(0))

		for v := uint32(0); v < this.Data.VocabSize; v += 1 {
			result := (float32(this.Wt.Get(v, k)) + this.Beta) /
				(float32(sum) + float32(this.Data.VocabSize)*this.Beta)
			phi.Set(v, k, result)
		}
	}

	return phi
}

// compute the posterior point estimation of document-topic mixture
// alpha (Dirichlet prior) + data -> theta
func (this *LDA) Theta() *sstable.Float32Matrix {
	theta := sstable.NewFloat32Matrix(this.Data.DocNum, this.TopicNum)

	for d := uint32(0); d < this.Data.DocNum; d += 1 {
		sum := sstable.Uint32VectorSum(this.Dt.GetRow(d))

		for k := uint32(0); k < this.TopicNum; k += 1 {
			result := (float32(this.Dt.Get(d, k)) + this.Alpha) /
				(float32(sum) + float32(this.TopicNum)*this.Alpha)
			theta.Set(d, k, result)
		}
	}

	return theta
}

// TopTerms returns the n vocabulary ids with the highest smoothed
// weight under topic k, ties broken by ascending id. A topic with no
// assigned tokens yields an empty result, which is a legitimate
// sampling outcome rather than an error.
func (this *LDA) TopTerms(k uint32, n int) []uint32 {
	if k >= this.TopicNum || n <= 0 {
		return nil
	}
	if this.Wts.Get(k, uint32(0)) == 0 {
		return nil
	}

	ids := make([]uint32, this.Data.VocabSize)
	for v := uint32(0); v < this.Data.VocabSize; v += 1 {
		ids[v] = v
	}
	// the beta smoothing is constant per topic, so ranking by raw
	// count preserves the smoothed order
	sort.SliceStable(ids, func(i, j int) bool {
		ci := this.Wt.Get(ids[i], k)
		cj := this.Wt.Get(ids[j], k)
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

// compute the joint likelihood of corpus
func (this *LDA) Likelihood() float64 {
	phi := this.Phi()
	theta := this.Theta()

	sum := float64(0.0)
	for doc, words := range this.Data.Docs {
		for _, w := range words {
			topicSum := float32(0.0)
			for k := uint32(0); k < this.TopicNum; k += 1 {
				topicSum += phi.Get(w, k) * theta.Get(uint32(doc), k)
			}
			sum += math.Log(float64(topicSum))
		}
	}

	return sum
}

// Infer estimates the topic mixture of an unseen document by a
// restricted gibbs sweep: only the document's own assignments are
// resampled against the frozen word-topic tables, which are never
// mutated. Vocabulary ids outside the trained range are rejected
// with ErrInvalidToken.
func (this *LDA) Infer(doc []uint32, iter int) ([]float32, error) {
	if this.state != stateConverged {
		return nil, ErrNotTrained
	}
	for _, w := range doc {
		if w >= this.Data.VocabSize {
			return nil, ErrInvalidToken
		}
	}

	// isolated generator so concurrent-free inference runs do not
	// disturb the training chain
	rng := rand.New(rand.NewSource(this.seed + 1))

	dt := make([]uint32, this.TopicNum)
	z := make([]uint32, len(doc))
	for i := range doc {
		k := uint32(rng.Int31n(int32(this.TopicNum)))
		z[i] = k
		dt[k] += uint32(1)
	}

	cumsum := make([]float32, this.TopicNum)
	for it := 0; it < iter; it += 1 {
		for i, w := range doc {
			k := z[i]
			dt[k] -= uint32(1)

			for kidx := uint32(0); kidx < this.TopicNum; kidx += 1 {
				docPart := this.Alpha + float32(dt[kidx])
				wordPart := (this.Beta + float32(this.Wt.Get(w, kidx))) /
					(float32(this.Wts.Get(kidx, uint32(0))) +
						this.Beta*float32(this.Data.VocabSize))
				if kidx == 0 {
					cumsum[kidx] = docPart * wordPart
				} else {
					cumsum[kidx] = cumsum[kidx-1] + docPart*wordPart
				}
			}
			k = util.DrawCumulative(rng, cumsum)

			dt[k] += uint32(1)
			z[i] = k
		}
	}

	theta := make([]float64, this.TopicNum)
	for k := uint32(0); k < this.TopicNum; k += 1 {
		theta[k] = float64(dt[k]) + float64(this.Alpha)
	}
	norm := floats.Sum(theta)

	out := make([]float32, this.TopicNum)
	for k := range theta {
		out[k] = float32(theta[k] / norm)
	}
	return out, nil
}

// serialize word-topic distribution
func (this *LDA) SavePhi(fn string) error {
	return sstable.Float32Serialize(this.Phi(), fn+".phi")
}

// serialize document-topic distribution
func (this *LDA) SaveTheta(fn string) error {
	return sstable.Float32Serialize(this.Theta(), fn+".theta")
}

// serialize word-topic matrix
func (this *LDA) SaveWordTopic(fn string) error {
	return sstable.Uint32Serialize(this.Wt, fn+".wt")
}

// deserialize word-topic matrix
func (this *LDA) LoadWordTopic(fn string) error {
	wt, err := sstable.Uint32Deserialize(fn + ".wt")
	if err != nil {
		return err
	}
	this.Wt = wt
	return nil
}
