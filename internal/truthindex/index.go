package truthindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/babar-raza/tbcv/internal/eventbus"
	"github.com/babar-raza/tbcv/pkg/contracts"
	"github.com/babar-raza/tbcv/pkg/models"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// TopicTruthChange is published whenever the on-disk truth corpus reloads.
const TopicTruthChange = "truth_change"

// truthFile is the on-disk YAML shape for one family's truth data.
type truthFile struct {
	Family  models.Family       `yaml:"family"`
	Records []models.TruthRecord `yaml:"records"`
}

// Index is the family-scoped truth record store, offering exact, alias,
// and semantic lookup with graceful degradation when no embedding
// provider is configured (§4.8).
type Index struct {
	mu      sync.RWMutex
	records map[models.Family]map[string]models.TruthRecord // family -> canonical_name -> record

	dir              string
	embeddings       contracts.EmbeddingDriver // nil is valid: semantic lookup degrades to alias-only
	vectorStore      contracts.VectorStoreDriver
	aliasThreshold   float64
	semanticThreshold float64

	bus    *eventbus.Bus
	watcher *fsnotify.Watcher
	stopCh chan struct{}
}

// Option configures an Index at construction.
type Option func(*Index)

func WithEmbeddingDriver(d contracts.EmbeddingDriver) Option {
	return func(i *Index) { i.embeddings = d }
}

func WithVectorStore(v contracts.VectorStoreDriver) Option {
	return func(i *Index) { i.vectorStore = v }
}

func WithThresholds(alias, semantic float64) Option {
	return func(i *Index) { i.aliasThreshold, i.semanticThreshold = alias, semantic }
}

// New creates an Index rooted at dir (one *.yaml file per family).
func New(dir string, bus *eventbus.Bus, opts ...Option) *Index {
	idx := &Index{
		records:          make(map[models.Family]map[string]models.TruthRecord),
		dir:              dir,
		aliasThreshold:   0.6,
		semanticThreshold: 0.82,
		bus:              bus,
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Start performs the initial load and, if watch is true, begins watching
// dir for changes via fsnotify.
func (idx *Index) Start(ctx context.Context, watch bool) error {
	if err := idx.reloadAll(ctx); err != nil {
		return fmt.Errorf("truthindex: initial load: %w", err)
	}
	if !watch {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("truthindex: create watcher: %w", err)
	}
	if err := watcher.Add(idx.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("truthindex: watch dir: %w", err)
	}
	idx.watcher = watcher
	go idx.watchLoop(ctx)
	return nil
}

func (idx *Index) watchLoop(ctx context.Context) {
	for {
		select {
		case <-idx.stopCh:
			return
		case <-ctx.Done():
			return
		case event, ok := <-idx.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".yaml") && !strings.HasSuffix(event.Name, ".yml") {
				continue
			}
			log.Info().Str("file", event.Name).Msg("truthindex: change detected")
			if err := idx.reloadAll(ctx); err != nil {
				log.Warn().Err(err).Msg("truthindex: reload failed, keeping previous data")
				continue
			}
			if idx.bus != nil {
				idx.bus.Publish(ctx, TopicTruthChange, nil)
			}
		case err, ok := <-idx.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("truthindex: watcher error")
		}
	}
}

func (idx *Index) Stop() {
	select {
	case <-idx.stopCh:
		return
	default:
		close(idx.stopCh)
	}
	if idx.watcher != nil {
		idx.watcher.Close()
	}
}

func (idx *Index) reloadAll(ctx context.Context) error {
	entries, err := os.ReadDir(idx.dir)
	if err != nil {
		return err
	}

	next := make(map[models.Family]map[string]models.TruthRecord)
	var toEmbed []models.TruthRecord

	for _, entry := range entries {
		if entry.IsDir() || (!strings.HasSuffix(entry.Name(), ".yaml") && !strings.HasSuffix(entry.Name(), ".yml")) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(idx.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		var tf truthFile
		if err := yaml.Unmarshal(data, &tf); err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if next[tf.Family] == nil {
			next[tf.Family] = make(map[string]models.TruthRecord)
		}
		for _, rec := range tf.Records {
			rec.Family = tf.Family
			next[tf.Family][rec.CanonicalName] = rec
			if len(rec.Embedding) == 0 {
				toEmbed = append(toEmbed, rec)
			}
		}
	}

	idx.mu.Lock()
	idx.records = next
	idx.mu.Unlock()

	if idx.embeddings != nil && idx.vectorStore != nil && len(toEmbed) > 0 {
		idx.embedAndIndex(ctx, toEmbed)
	}
	return nil
}

func (idx *Index) embedAndIndex(ctx context.Context, records []models.TruthRecord) {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.CanonicalName + " " + strings.Join(r.Aliases, " ")
	}
	vectors, err := idx.embeddings.Embed(ctx, texts)
	if err != nil {
		log.Warn().Err(err).Msg("truthindex: embedding backfill failed, semantic lookup degraded for these records")
		return
	}
	for i, rec := range records {
		if i >= len(vectors) {
			break
		}
		if err := idx.vectorStore.Upsert(ctx, string(rec.Family)+":"+rec.CanonicalName, vectors[i]); err != nil {
			log.Warn().Err(err).Str("record", rec.CanonicalName).Msg("truthindex: vector upsert failed")
		}
	}
}

// Exact returns the record with exactly this canonical name or alias, if any.
func (idx *Index) Exact(family models.Family, name string) (models.TruthRecord, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	byName, ok := idx.records[family]
	if !ok {
		return models.TruthRecord{}, false
	}
	if rec, ok := byName[name]; ok {
		return rec, true
	}
	for _, rec := range byName {
		for _, alias := range rec.Aliases {
			if alias == name {
				return rec, true
			}
		}
	}
	return models.TruthRecord{}, false
}

// Alias performs fuzzy trigram matching against canonical names and
// aliases, returning candidates scoring at or above the alias threshold,
// best first.
func (idx *Index) Alias(family models.Family, name string) []models.TruthRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	byName, ok := idx.records[family]
	if !ok {
		return nil
	}

	type scored struct {
		rec   models.TruthRecord
		score float64
	}
	var candidates []scored
	for _, rec := range byName {
		best := jaccardSimilarity(name, rec.CanonicalName)
		for _, alias := range rec.Aliases {
			if s := jaccardSimilarity(name, alias); s > best {
				best = s
			}
		}
		if best >= idx.aliasThreshold {
			candidates = append(candidates, scored{rec: rec, score: best})
		}
	}

	result := make([]models.TruthRecord, 0, len(candidates))
	// simple selection sort descending by score; candidate sets are small (tens, not thousands)
	for len(candidates) > 0 {
		bestIdx := 0
		for i, c := range candidates {
			if c.score > candidates[bestIdx].score {
				bestIdx = i
			}
		}
		result = append(result, candidates[bestIdx].rec)
		candidates = append(candidates[:bestIdx], candidates[bestIdx+1:]...)
	}
	return result
}

// Semantic embeds name and queries the vector store for nearest truth
// records. Falls back to Alias (with Fallback=true) when no embedding
// driver is configured, per §4.8's graceful-degrade requirement.
func (idx *Index) Semantic(ctx context.Context, family models.Family, name string) models.TruthLookupResult {
	if idx.embeddings == nil || idx.vectorStore == nil {
		return models.TruthLookupResult{Records: idx.Alias(family, name), Fallback: true}
	}

	vectors, err := idx.embeddings.Embed(ctx, []string{name})
	if err != nil || len(vectors) == 0 {
		log.Warn().Err(err).Msg("truthindex: semantic embed failed, falling back to alias lookup")
		return models.TruthLookupResult{Records: idx.Alias(family, name), Fallback: true}
	}

	matches, err := idx.vectorStore.Query(ctx, vectors[0], 5)
	if err != nil {
		log.Warn().Err(err).Msg("truthindex: semantic query failed, falling back to alias lookup")
		return models.TruthLookupResult{Records: idx.Alias(family, name), Fallback: true}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var result []models.TruthRecord
	for _, m := range matches {
		if m.Score < idx.semanticThreshold {
			continue
		}
		parts := strings.SplitN(m.RecordID, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if rec, ok := idx.records[models.Family(parts[0])][parts[1]]; ok {
			result = append(result, rec)
		}
	}
	return models.TruthLookupResult{Records: result, Fallback: false}
}

// AllForFamily returns every record loaded for family, for validators that
// need the whole combination table (e.g. forbidden-combination checks).
func (idx *Index) AllForFamily(family models.Family) []models.TruthRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	byName := idx.records[family]
	result := make([]models.TruthRecord, 0, len(byName))
	for _, rec := range byName {
		result = append(result, rec)
	}
	return result
}

// ValidCombination reports false when ids contains a loaded record's
// CanonicalName together with one of that record's ForbiddenPatterns, and
// true otherwise (including for fewer than two ids or an unknown family).
// Records' Combinations lists are not consulted. Used by the truth
// validator to flag plugin sets known to conflict.
func (idx *Index) ValidCombination(family models.Family, ids []string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	byName, ok := idx.records[family]
	if !ok || len(ids) < 2 {
		return true
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	for _, rec := range byName {
		for _, forbidden := range rec.ForbiddenPatterns {
			if _, ok := want[forbidden]; ok {
				if _, ok := want[rec.CanonicalName]; ok {
					return false
				}
			}
		}
	}
	return true
}

// Clear drops every record loaded for family. No RPC method calls it.
func (idx *Index) Clear(family models.Family) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.records, family)
}

// Stats returns the record count loaded per family.
func (idx *Index) Stats() map[models.Family]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[models.Family]int, len(idx.records))
	for family, byName := range idx.records {
		out[family] = len(byName)
	}
	return out
}
