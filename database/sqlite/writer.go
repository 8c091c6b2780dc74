package sqlite

import (
	"context"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"time"
)

const flushInterval = 100 * time.Millisecond

func (b *Backend) insert(objects []any) error {
	err := b.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range objects {
			res := tx.Create(row)
			if res.Error != nil {
				return errors.Wrap(res.Error, "create")
			}
		}
		return nil
	})
	return err
}

// RunWriter batches queued rows into one transaction per tick. Pending rows
// are flushed when ctx is cancelled.
func (b *Backend) RunWriter(ctx context.Context, errCh chan error) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var rows []any

	flush := func() bool {
		if len(rows) == 0 {
			return true
		}

		err := b.insert(rows)
		rows = nil

		if err != nil {
			select {
			case errCh <- errors.Wrap(err, "transaction"):
			default:
			}
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case obj := <-b.objects:
					rows = append(rows, obj)
				default:
					flush()
					return
				}
			}
		case obj := <-b.objects:
			rows = append(rows, obj)
		case <-ticker.C:
			if !flush() {
				return
			}
		}
	}
}
