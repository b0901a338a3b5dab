package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/internal/errors"
)

// CreateIndex creates a new empty index with the given settings.
func (e *Engine) CreateIndex(settings config.IndexSettings) error {
	settings = settings.Clone()
	if settings.NumberOfShards == 0 {
		settings.NumberOfShards = e.defaultShards
	}
	settings.ApplyDefaults()
	if conflicts := settings.Validate(); len(conflicts) > 0 {
		return errors.NewValidationError("settings", strings.Join(conflicts, "; "))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("engine is closed: %w", errors.ErrIndexClosed)
	}
	if _, exists := e.indexes[settings.Name]; exists {
		return errors.NewIndexAlreadyExistsError(settings.Name)
	}

	instance, err := e.newIndexInstance(settings)
	if err != nil {
		return fmt.Errorf("failed to create index '%s': %w", settings.Name, err)
	}
	e.indexes[settings.Name] = instance
	e.metrics.SetShardDocCounts(settings.Name, instance.shards.DocCount())

	e.logger.Info("index created",
		zap.String("index", settings.Name),
		zap.Int("shards", settings.NumberOfShards),
		zap.Int("mapped_fields", len(settings.Mappings)))
	return nil
}

// DeleteIndex removes an index. Writes still holding the instance fail with
// ErrIndexClosed; searches already running complete against the old shards.
func (e *Engine) DeleteIndex(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.indexes[name]
	if !exists {
		return errors.NewIndexNotFoundError(name)
	}
	instance.indexer.Close()
	delete(e.indexes, name)
	e.metrics.ForgetIndex(name)

	e.logger.Info("index deleted", zap.String("index", name))
	return nil
}
