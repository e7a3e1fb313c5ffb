package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ul-gh/hdscope/domain/capture"
	"github.com/ul-gh/hdscope/internal/database"
)

// CaptureStore implements capture.Store using GORM.
type CaptureStore struct {
	database.Table[capture.Capture, CaptureModel]
	db database.Database
}

// NewCaptureStore creates a new CaptureStore.
func NewCaptureStore(db database.Database) CaptureStore {
	return CaptureStore{
		Table: database.NewTable[capture.Capture, CaptureModel](db, CaptureMapper{}, "capture"),
		db:    db,
	}
}

// Save creates or updates a capture.
func (s CaptureStore) Save(ctx context.Context, c capture.Capture) (capture.Capture, error) {
	model := s.Mapper().ToModel(c)
	now := time.Now().UTC()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now

	if model.ID == 0 {
		if err := s.db.Session(ctx).Create(&model).Error; err != nil {
			return capture.Capture{}, fmt.Errorf("create capture: %w", err)
		}
	} else if err := s.db.Session(ctx).Save(&model).Error; err != nil {
		return capture.Capture{}, fmt.Errorf("update capture %d: %w", model.ID, err)
	}

	return s.Mapper().ToDomain(model), nil
}

// Delete removes a capture.
func (s CaptureStore) Delete(ctx context.Context, c capture.Capture) error {
	model := s.Mapper().ToModel(c)
	if err := s.db.Session(ctx).Delete(&model).Error; err != nil {
		return fmt.Errorf("delete capture %d: %w", model.ID, err)
	}
	return nil
}

// SaveWithSamples inserts c, writes its samples through files and records
// the data path, all inside one transaction. If the transaction fails after
// the samples were written, the sample data is removed again.
func (s CaptureStore) SaveWithSamples(ctx context.Context, c capture.Capture, samples []float64, files capture.SampleStore) (capture.Capture, error) {
	var written capture.Capture
	saved, err := database.Atomic(ctx, s.db, func(tx database.Database) (capture.Capture, error) {
		store := NewCaptureStore(tx)
		saved, err := store.Save(ctx, c)
		if err != nil {
			return capture.Capture{}, err
		}
		path, err := files.Write(ctx, saved, samples)
		if err != nil {
			return capture.Capture{}, fmt.Errorf("write samples: %w", err)
		}
		written = saved.WithDataPath(path)
		return store.Save(ctx, written)
	})
	if err != nil && written.DataPath() != "" {
		if rmErr := files.Remove(context.WithoutCancel(ctx), written); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("remove orphaned samples: %w", rmErr))
		}
	}
	return saved, err
}
