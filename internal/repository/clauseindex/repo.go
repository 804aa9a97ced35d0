// Package clauseindex is the persistent flat vector index over contract chunks.
package clauseindex

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/domain/chunk"
	"github.com/clauseinsight/clauseinsight/internal/metrics"
)

var bucketChunks = []byte("chunks")

// record is the stored form of one indexed chunk. The vector is packed as
// little-endian float32 bytes.
type record struct {
	Source  string `json:"source"`
	Page    int    `json:"page"`
	Ordinal int    `json:"ordinal"`
	Text    string `json:"text"`
	Vector  []byte `json:"vector"`
}

// entry is the in-memory form, kept in insertion order.
type entry struct {
	seq    uint64
	chunk  chunk.Chunk
	vector []float32
}

// Repo stores chunk vectors in bbolt and serves brute-force cosine search
// from an in-memory copy. Writes are serialized behind a single writer lock;
// searches run concurrently.
//
// The vector dimension is fixed by the first Add (or the first record loaded
// from disk) and enforced from then on. An emptied index accepts a new
// dimension again.
type Repo struct {
	db     *bbolt.DB
	logger *zap.Logger

	mu      sync.RWMutex
	dim     int
	entries []entry
}

// New opens (or creates) the index file at path. All persisted chunks are
// loaded into memory; records that fail to decode are skipped with a warning.
func New(path string, logger *zap.Logger) (*Repo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open index %q: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, berr := tx.CreateBucketIfNotExists(bucketChunks)
		return berr
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create chunks bucket: %w", err)
	}

	r := &Repo{db: db, logger: logger}
	if err := r.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load index: %w", err)
	}

	metrics.IndexChunks.Set(float64(len(r.entries)))

	return r, nil
}

// load reads every record in sequence order into memory. The first decodable
// record fixes the index dimension.
func (r *Repo) load() error {
	return r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketChunks).Cursor()

		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				r.logger.Warn("skipping undecodable index record",
					zap.Uint64("seq", binary.BigEndian.Uint64(k)),
					zap.Error(err),
				)
				continue
			}

			vec, err := decodeVector(rec.Vector)
			if err != nil {
				r.logger.Warn("skipping index record with invalid vector",
					zap.String("source", rec.Source),
					zap.Error(err),
				)
				continue
			}

			if r.dim == 0 {
				r.dim = len(vec)
			} else if len(vec) != r.dim {
				r.logger.Warn("skipping index record with wrong dimension",
					zap.String("source", rec.Source),
					zap.Int("got", len(vec)),
					zap.Int("want", r.dim),
				)
				continue
			}

			r.entries = append(r.entries, entry{
				seq:    binary.BigEndian.Uint64(k),
				chunk:  chunk.Reconstruct(rec.Source, rec.Page, rec.Ordinal, rec.Text),
				vector: vec,
			})
		}

		return nil
	})
}

// Add appends chunks and their vectors to the index in one transaction.
// Chunks and vectors are matched by position and must have equal length.
func (r *Repo) Add(chunks []chunk.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d: %w",
			len(chunks), len(vectors), domain.ErrInvalidArgument)
	}
	if len(chunks) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	want := r.dim
	if want == 0 {
		want = len(vectors[0])
		if want == 0 {
			return fmt.Errorf("vector 0 is empty: %w", domain.ErrVectorDimMismatch)
		}
	}
	for i, vec := range vectors {
		if len(vec) != want {
			return fmt.Errorf("vector %d has dimension %d, index expects %d: %w",
				i, len(vec), want, domain.ErrVectorDimMismatch)
		}
	}

	added := make([]entry, 0, len(chunks))

	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)

		for i, ch := range chunks {
			seq, serr := b.NextSequence()
			if serr != nil {
				return fmt.Errorf("next sequence: %w", serr)
			}

			rec := record{
				Source:  ch.Source(),
				Page:    ch.Page(),
				Ordinal: ch.Ordinal(),
				Text:    ch.Text(),
				Vector:  encodeVector(vectors[i]),
			}
			data, merr := json.Marshal(rec)
			if merr != nil {
				return fmt.Errorf("marshal record: %w", merr)
			}

			if perr := b.Put(seqKey(seq), data); perr != nil {
				return fmt.Errorf("put record: %w", perr)
			}

			added = append(added, entry{seq: seq, chunk: ch, vector: vectors[i]})
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.dim = want
	r.entries = append(r.entries, added...)
	metrics.IndexChunks.Set(float64(len(r.entries)))
	metrics.ChunksIndexedTotal.Add(float64(len(added)))

	return nil
}

// Search returns the topK nearest chunks by cosine similarity, ordered by
// non-increasing score with ties broken by insertion order. An index with no
// chunks fails with domain.ErrEmptyIndex instead of returning empty results.
func (r *Repo) Search(vector []float32, topK int) ([]domain.RetrievedMatch, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d: %w", topK, domain.ErrInvalidArgument)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(vector) != r.dim {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d: %w",
			len(vector), r.dim, domain.ErrVectorDimMismatch)
	}

	type scored struct {
		pos   int
		score float64
	}

	scores := make([]scored, len(r.entries))
	for i, e := range r.entries {
		scores[i] = scored{pos: i, score: cosineSimilarity(vector, e.vector)}
	}

	// Stable sort keeps earlier insertions first on equal scores.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if topK > len(scores) {
		topK = len(scores)
	}

	matches := make([]domain.RetrievedMatch, topK)
	for i := 0; i < topK; i++ {
		e := r.entries[scores[i].pos]
		matches[i] = domain.RetrievedMatch{Chunk: e.chunk, Score: scores[i].score}
	}

	return matches, nil
}

// RemoveSource drops every chunk of the named source document and returns
// how many were removed.
func (r *Repo) RemoveSource(source string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var keep []entry
	var drop []uint64
	for _, e := range r.entries {
		if e.chunk.Source() == source {
			drop = append(drop, e.seq)
			continue
		}
		keep = append(keep, e)
	}

	if len(drop) == 0 {
		return 0, nil
	}

	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		for _, seq := range drop {
			if derr := b.Delete(seqKey(seq)); derr != nil {
				return fmt.Errorf("delete record %d: %w", seq, derr)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.entries = keep
	if len(r.entries) == 0 {
		r.dim = 0
	}
	metrics.IndexChunks.Set(float64(len(r.entries)))

	return len(drop), nil
}

// Clear drops all chunks, leaving an empty index with no fixed dimension.
func (r *Repo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.Update(func(tx *bbolt.Tx) error {
		if derr := tx.DeleteBucket(bucketChunks); derr != nil {
			return fmt.Errorf("delete bucket: %w", derr)
		}
		_, cerr := tx.CreateBucket(bucketChunks)
		return cerr
	})
	if err != nil {
		return err
	}

	r.entries = nil
	r.dim = 0
	metrics.IndexChunks.Set(0)

	return nil
}

// Count returns the number of indexed chunks.
func (r *Repo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sources returns the distinct source documents in the index, sorted.
func (r *Repo) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, 4)
	var docs []string
	for _, e := range r.entries {
		if _, ok := seen[e.chunk.Source()]; ok {
			continue
		}
		seen[e.chunk.Source()] = struct{}{}
		docs = append(docs, e.chunk.Source())
	}

	sort.Strings(docs)
	return docs
}

// All returns every indexed chunk in insertion order.
func (r *Repo) All() []chunk.Chunk {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chunks := make([]chunk.Chunk, len(r.entries))
	for i, e := range r.entries {
		chunks[i] = e.chunk
	}
	return chunks
}

// Close releases the underlying database file.
func (r *Repo) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	return nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data: len=%d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// cosineSimilarity computes the cosine of the angle between two equal-length
// vectors. Zero vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
