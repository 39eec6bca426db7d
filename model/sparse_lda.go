package model

import (
	"math"
	"sort"

	log "github.com/golang/glog"

	"github.com/craigthomas/NLMT-sub001/corpus"
	"github.com/craigthomas/NLMT-sub001/sstable"
)

func init() {
	Register("sparselda", NewSparseLDA)
}

// SparseLDA decomposes the sampling mass into smoothing, doc-topic
// and word-topic buckets so each token draw only walks the nonzero
// topic counts of its word.
type SparseLDA struct {
	*LDA
	Wtm *sstable.SortedMap
}

// NewSparseLDA creates a sparse lda instance with a time and memory
// efficient gibbs sampler
func NewSparseLDA(dat *corpus.Corpus, cfg Config) (Model, error) {
	lda, err := newLDA(dat, cfg)
	if err != nil {
		return nil, err
	}
	return &SparseLDA{
		LDA: lda,
		Wtm: sstable.NewSortedMap(cfg.TopicNum),
	}, nil
}

func (this *SparseLDA) Init() {
	this.LDA.Init()

	// move the dense word-topic counts into the count-sorted map
	// and drop the dense table
	row, col := this.Wt.Shape()
	for r := uint32(0); r < row; r += 1 {
		for c := uint32(0); c < col; c += 1 {
			cnt := this.Wt.Get(r, c)
			if cnt > 0 {
				this.Wtm.Incr(r, c, cnt)
			}
		}
	}
	this.Wt = nil
}

// Step performs one fast sparse gibbs sweep
func (this *SparseLDA) Step() {
	if this.state == stateUninitialized {
		this.Init()
	}
	this.state = stateSampling

	betaV := this.Beta * float32(this.Data.VocabSize)

	// compute smoothing bucket
	smoothingBucket := float32(0.0)
	for k := uint32(0); k < this.TopicNum; k += 1 {
		smoothingBucket += (this.Alpha * this.Beta) /
			(betaV + float32(this.Wts.Get(k, uint32(0))))
	}

	// word-topic bucket cache
	wtbCache := make([]float32, this.TopicNum)

	dw := sstable.DocWord{}
	for doc, words := range this.Data.Docs {
		// document-topic bucket
		docTopicBucket := float32(0.0)
		for k := uint32(0); k < this.TopicNum; k += 1 {
			denom := betaV + float32(this.Wts.Get(k, uint32(0)))
			docTopicBucket += (this.Beta * float32(this.Dt.Get(uint32(doc), k))) / denom
			wtbCache[k] = (this.Alpha + float32(this.Dt.Get(uint32(doc), k))) / denom
		}

		for i, w := range words {
			// get the current topic of word w
			dw.DocId = uint32(doc)
			dw.WordIdx = uint32(i)
			k := this.Dwt[dw]

			// subtract the old assignment from the buckets
			denom := betaV + float32(this.Wts.Get(k, uint32(0)))
			smoothingBucket -= (this.Alpha * this.Beta) / denom
			docTopicBucket -= (this.Beta * float32(this.Dt.Get(uint32(doc), k))) / denom

			// decrease corresponding sufficient statistics
			this.Wtm.Decr(w, k, uint32(1))
			this.Dt.Decr(uint32(doc), k, uint32(1))
			this.Wts.Decr(k, uint32(0), uint32(1))

			// update bucket values
			denom = betaV + float32(this.Wts.Get(k, uint32(0)))
			smoothingBucket += (this.Alpha * this.Beta) / denom
			docTopicBucket += (this.Beta * float32(this.Dt.Get(uint32(doc), k))) / denom
			wtbCache[k] = (this.Alpha + float32(this.Dt.Get(uint32(doc), k))) / denom

			// compute word-topic bucket sum over the nonzero counts
			wtbSum := float32(0.0)
			for idx := range this.Wtm.Data[w] {
				tid, count := this.Wtm.Get(w, idx)
				wtbSum += wtbCache[tid] * float32(count)
			}

			// resample topic assignment
			var cumsum float32
			u := this.rng.Float32() * (wtbSum + docTopicBucket + smoothingBucket)
			if u < wtbSum { // word-topic bucket
				cumsum = 0.0
				for tcIdx := range this.Wtm.Data[w] {
					tid, count := this.Wtm.Get(w, tcIdx)
					cumsum += wtbCache[tid] * float32(count)
					k = tid
					if cumsum >= u {
						break
					}
				}
			} else if u < wtbSum+docTopicBucket { // doc-topic bucket
				cumsum = 0.0
				u = u - wtbSum
				for kidx := uint32(0); kidx < this.TopicNum; kidx += 1 {
					cumsum += (this.Beta * float32(this.Dt.Get(uint32(doc), kidx))) /
						(betaV + float32(this.Wts.Get(kidx, uint32(0))))
					k = kidx
					if cumsum >= u {
						break
					}
				}
			} else { // smoothing bucket
				cumsum = 0.0
				u = u - wtbSum - docTopicBucket
				for kidx := uint32(0); kidx < this.TopicNum; kidx += 1 {
					cumsum += (this.Alpha * this.Beta) /
						(betaV + float32(this.Wts.Get(kidx, uint32(0))))
					k = kidx
					if cumsum >= u {
						break
					}
				}
			}

			// subtract the new assignment from the buckets
			denom = betaV + float32(this.Wts.Get(k, uint32(0)))
			smoothingBucket -= (this.Alpha * this.Beta) / denom
			docTopicBucket -= (this.Beta * float32(this.Dt.Get(uint32(doc), k))) / denom

			// increase corresponding sufficient statistics
			this.Wtm.Incr(w, k, uint32(1))
			this.Dt.Incr(uint32(doc), k, uint32(1))
			this.Wts.Incr(k, uint32(0), uint32(1))
			this.Dwt[dw] = k

			// update bucket values
			denom = betaV + float32(this.Wts.Get(k, uint32(0)))
			smoothingBucket += (this.Alpha * this.Beta) / denom
			docTopicBucket += (this.Beta * float32(this.Dt.Get(uint32(doc), k))) / denom
			wtbCache[k] = (this.Alpha + float32(this.Dt.Get(uint32(doc), k))) / denom
		}
	}
}

func (this *SparseLDA) Train(iter int) {
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
func (this *SparseLDA) Phi() *sstable.Float32Matrix {
	phi := sstable.NewFloat32Matrix(this.Data.VocabSize, this.TopicNum)

	for w := uint32(0); w < this.Data.VocabSize; w += 1 {
		// convert sparse vector to dense vector
		wordTopicCount := make([]uint32, this.TopicNum)
		for tcIdx := range this.Wtm.Data[w] {
			topicId, count := this.Wtm.Get(w, tcIdx)
			wordTopicCount[topicId] = count
		}
		for k := uint32(0); k < this.TopicNum; k += 1 {
			result := (float32(wordTopicCount[k]) + this.Beta) /
				(float32(this.Wts.Get(k, uint32(0))) +
					float32(this.Data.VocabSize)*this.Beta)
			phi.Set(w, k, result)
		}
	}

	return phi
}

func (this *SparseLDA) TopTerms(k uint32, n int) []uint32 {
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
	sort.SliceStable(ids, func(i, j int) bool {
		ci := this.Wtm.GetCount(ids[i], k)
		cj := this.Wtm.GetCount(ids[j], k)
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
func (this *SparseLDA) Likelihood() float64 {
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

// Infer mirrors LDA.Infer against the sparse word-topic map
func (this *SparseLDA) Infer(doc []uint32, iter int) ([]float32, error) {
	if this.state != stateConverged {
		return nil, ErrNotTrained
	}
	// materialize the frozen counts densely and reuse the flat
	// inference sweep
	dense := &LDA{
		Data:     this.Data,
		Alpha:    this.Alpha,
		Beta:     this.Beta,
		TopicNum: this.TopicNum,
		Wt:       this.denseWordTopic(),
		Wts:      this.Wts,
		seed:     this.seed,
		state:    stateConverged,
	}
	return dense.Infer(doc, iter)
}

func (this *SparseLDA) denseWordTopic() *sstable.Uint32Matrix {
	wt := sstable.NewUint32Matrix(this.Data.VocabSize, this.TopicNum)
	for w := uint32(0); w < this.Data.VocabSize; w += 1 {
		for tcIdx := range this.Wtm.Data[w] {
			topicId, count := this.Wtm.Get(w, tcIdx)
			wt.Set(w, topicId, count)
		}
	}
	return wt
}

// serialize word-topic distribution
func (this *SparseLDA) SavePhi(fn string) error {
	return sstable.Float32Serialize(this.Phi(), fn+".phi")
}

// serialize word-topic counts through the dense text form
func (this *SparseLDA) SaveWordTopic(fn string) error {
	return sstable.Uint32Serialize(this.denseWordTopic(), fn+".wt")
}

// deserialize word-topic counts
func (this *SparseLDA) LoadWordTopic(fn string) error {
	wt, err := sstable.Uint32Deserialize(fn + ".wt")
	if err != nil {
		return err
	}
	this.Wtm = sstable.NewSortedMap(this.TopicNum)
	row, col := wt.Shape()
	for r := uint32(0); r < row; r += 1 {
		for c := uint32(0); c < col; c += 1 {
			if cnt := wt.Get(r, c); cnt > 0 {
				this.Wtm.Incr(r, c, cnt)
			}
		}
	}
	return nil
}
