package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	DefaultCollection = "AI_Initiatives"
	DefaultTopK       = 5
	defaultBatchSize  = 64
)

// Passage 是一次检索命中的片段。
type Passage struct {
	ID      int64
	Source  string
	Content string
	Score   float64
}

// Document 是待入库的一段原始文本。
type Document struct {
	Source  string
	Content string
}

type IndexOptions struct {
	Collection string
	ChunkSize  int
	Overlap    int
	BatchSize  int
}

// Index 把 Store 与 Embedder 组合成可查询的知识库。
type Index struct {
	store      *Store
	embedder   Embedder
	collection string
	chunkSize  int
	overlap    int
	batchSize  int
}

func NewIndex(store *Store, embedder Embedder, opts IndexOptions) (*Index, error) {
	if store == nil {
		return nil, errors.New("knowledge store is nil")
	}
	if embedder == nil {
		return nil, errors.New("embedder is nil")
	}
	idx := &Index{
		store:      store,
		embedder:   embedder,
		collection: strings.TrimSpace(opts.Collection),
		chunkSize:  opts.ChunkSize,
		overlap:    opts.Overlap,
		batchSize:  opts.BatchSize,
	}
	if idx.collection == "" {
		idx.collection = DefaultCollection
	}
	if idx.chunkSize <= 0 {
		idx.chunkSize = DefaultChunkSize
		if opts.Overlap == 0 {
			idx.overlap = DefaultChunkOverlap
		}
	}
	if idx.batchSize <= 0 {
		idx.batchSize = defaultBatchSize
	}
	return idx, nil
}

func (idx *Index) Collection() string { return idx.collection }

func (idx *Index) Count(ctx context.Context) (int, error) {
	return idx.store.Count(ctx, idx.collection)
}

// Query 返回与 text 最相似的至多 k 个片段，按相似度降序；分数相同按插入顺序。
// 同一索引状态下相同的查询总是得到相同的结果。
func (idx *Index) Query(ctx context.Context, text string, k int) ([]Passage, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty query")
	}
	records, err := idx.store.All(ctx, idx.collection)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	vecs, err := idx.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	query := vecs[0]

	passages := make([]Passage, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if len(rec.Embedding) != len(query) {
			skipped++
			continue
		}
		passages = append(passages, Passage{
			ID:      rec.ID,
			Source:  rec.Source,
			Content: rec.Content,
			Score:   cosine(query, rec.Embedding),
		})
	}
	if skipped > 0 {
		log.Warnf("query skipped %d passage(s) with mismatched dimensions (embedder=%s)", skipped, idx.embedder.Name())
	}
	sort.SliceStable(passages, func(i, j int) bool {
		if passages[i].Score != passages[j].Score {
			return passages[i].Score > passages[j].Score
		}
		return passages[i].ID < passages[j].ID
	})
	if len(passages) > k {
		passages = passages[:k]
	}
	return passages, nil
}

// AddDocuments 切块、去重、批量嵌入并写入存储，返回新增片段数。
// 内容哈希已存在的片段会被跳过，重复写入同一文档不会产生重复。
func (idx *Index) AddDocuments(ctx context.Context, docs []Document) (int, error) {
	type pending struct {
		rec  Record
		text string
	}
	var chunks []pending
	seen := make(map[string]bool)
	for _, doc := range docs {
		for i, chunk := range Split(doc.Content, idx.chunkSize, idx.overlap) {
			hash := contentHash(chunk)
			if seen[hash] {
				continue
			}
			seen[hash] = true
			chunks = append(chunks, pending{rec: Record{Source: doc.Source, Chunk: i, Content: chunk, Hash: hash}, text: chunk})
		}
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	hashes := make([]string, len(chunks))
	for i, c := range chunks {
		hashes[i] = c.rec.Hash
	}
	known, err := idx.store.KnownHashes(ctx, idx.collection, hashes)
	if err != nil {
		return 0, err
	}
	fresh := chunks[:0]
	for _, c := range chunks {
		if !known[c.rec.Hash] {
			fresh = append(fresh, c)
		}
	}

	added := 0
	for start := 0; start < len(fresh); start += idx.batchSize {
		end := min(start+idx.batchSize, len(fresh))
		batch := fresh[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.text
		}
		vecs, err := idx.embedder.Embed(ctx, texts)
		if err != nil {
			return added, fmt.Errorf("embed batch: %w", err)
		}
		if len(vecs) != len(batch) {
			return added, fmt.Errorf("embed batch: got %d vectors for %d chunks", len(vecs), len(batch))
		}
		records := make([]Record, len(batch))
		for i, c := range batch {
			rec := c.rec
			rec.Embedding = vecs[i]
			records[i] = rec
		}
		n, err := idx.store.Add(ctx, idx.collection, records)
		added += n
		if err != nil {
			return added, err
		}
	}
	return added, nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
