package queue

import (
	"context"
	"encoding/json"

	"github.com/emrgen/propagate/internal/compress"
	"github.com/emrgen/propagate/internal/model"
	"github.com/pkg/errors"
)

// ChangeQueue carries document changes from the writers to the propagation worker.
type ChangeQueue interface {
	// Publish appends a change to the queue.
	Publish(ctx context.Context, change *model.Change) error
	// Subscribe streams changes until ctx is done. The channel is closed on return.
	Subscribe(ctx context.Context) (<-chan *model.Change, error)
	Close() error
}

// codec turns changes into compressed queue payloads.
type codec struct {
	compress compress.Compress
}

func (c codec) encode(change *model.Change) ([]byte, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return nil, errors.Wrapf(err, "encode change %s", change.ID)
	}
	return c.compress.Encode(data)
}

func (c codec) decode(payload []byte) (*model.Change, error) {
	data, err := c.compress.Decode(payload)
	if err != nil {
		return nil, errors.Wrap(err, "decompress change")
	}

	change := &model.Change{}
	if err := json.Unmarshal(data, change); err != nil {
		return nil, errors.Wrap(err, "decode change")
	}

	return change, nil
}
