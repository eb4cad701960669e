// Package keyword implements an in-process inverted index with TF-IDF
// scoring. It is the lexical counterpart to the vector index and serves
// deployments that do not run an external search engine.
package keyword

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/fyrsmithlabs/rankd/internal/retrieval"
	"github.com/fyrsmithlabs/rankd/internal/textsim"
)

// Document is one indexable chunk.
type Document struct {
	SourceID   string
	ChunkIndex int
	Content    string
}

type entry struct {
	doc    Document
	order  int
	length int
}

// Index is a thread-safe inverted index. Scores are raw TF-IDF sums, not
// normalized to [0,1]; fusion normalizes per-list.
type Index struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	postings map[string]map[string]int
	nextSeq  int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		entries:  make(map[string]*entry),
		postings: make(map[string]map[string]int),
	}
}

// Add indexes documents. Re-adding a chunk replaces its previous terms.
func (idx *Index) Add(docs ...Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, doc := range docs {
		key := docKey(doc.SourceID, doc.ChunkIndex)
		if prev, ok := idx.entries[key]; ok {
			idx.removeTermsLocked(key, prev.doc)
		}

		terms := textsim.Words(textsim.Normalize(doc.Content))
		e := &entry{doc: doc, order: idx.nextSeq, length: len(terms)}
		idx.nextSeq++
		idx.entries[key] = e

		for _, term := range terms {
			if idx.postings[term] == nil {
				idx.postings[term] = make(map[string]int)
			}
			idx.postings[term][key]++
		}
	}
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Search scores all chunks containing at least one query term and returns
// the top-K by TF-IDF. Ties break by insertion order, so repeated searches
// over the same index return the same ranking.
func (idx *Index) Search(_ context.Context, query string, topK int) ([]retrieval.KeywordHit, error) {
	terms := uniqueTerms(textsim.Words(textsim.Normalize(query)))
	if len(terms) == 0 || topK <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	total := len(idx.entries)
	if total == 0 {
		return nil, nil
	}

	scores := make(map[string]float64)
	for _, term := range terms {
		posting, ok := idx.postings[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + float64(total)/float64(len(posting)))
		for key, tf := range posting {
			length := idx.entries[key].length
			scores[key] += (float64(tf) / float64(length)) * idf
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	matched := make([]*entry, 0, len(scores))
	for key := range scores {
		matched = append(matched, idx.entries[key])
	}
	sort.Slice(matched, func(i, j int) bool {
		si := scores[docKey(matched[i].doc.SourceID, matched[i].doc.ChunkIndex)]
		sj := scores[docKey(matched[j].doc.SourceID, matched[j].doc.ChunkIndex)]
		if si != sj {
			return si > sj
		}
		return matched[i].order < matched[j].order
	})
	if len(matched) > topK {
		matched = matched[:topK]
	}

	hits := make([]retrieval.KeywordHit, len(matched))
	for i, e := range matched {
		hits[i] = retrieval.KeywordHit{
			SourceID:   e.doc.SourceID,
			ChunkIndex: e.doc.ChunkIndex,
			Content:    e.doc.Content,
			Score:      scores[docKey(e.doc.SourceID, e.doc.ChunkIndex)],
		}
	}
	return hits, nil
}

func (idx *Index) removeTermsLocked(key string, doc Document) {
	for _, term := range textsim.Words(textsim.Normalize(doc.Content)) {
		posting := idx.postings[term]
		if posting == nil {
			continue
		}
		delete(posting, key)
		if len(posting) == 0 {
			delete(idx.postings, term)
		}
	}
}

func docKey(sourceID string, chunkIndex int) string {
	return sourceID + "\x00" + strconv.Itoa(chunkIndex)
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
