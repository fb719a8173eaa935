package braw

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/avdecoder/bufferpool"
	"github.com/xaionaro-go/avdecoder/logger"
	"github.com/xaionaro-go/avdecoder/types"
)

// resourcePoolCapacity is the number of idle download buffers kept per
// shape.
const resourcePoolCapacity = 4

// resourceKind is the format part of the pool key.
type resourceKind struct {
	Type   ResourceType
	Format types.PixelFormat
	Size   int
}

func (k resourceKind) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Type, k.Format, k.Size)
}

type resourcePool = bufferpool.Pool[Resource, resourceKind]

// resourceFactory creates SDK resources on the processing device's
// context and queue.
type resourceFactory struct {
	manager ResourceManager
	context uintptr
	queue   uintptr
}

var _ bufferpool.Factory[Resource, resourceKind] = (*resourceFactory)(nil)

func (f *resourceFactory) Create(
	ctx context.Context,
	key bufferpool.Key[resourceKind],
) (Resource, error) {
	logger.Debugf(ctx, "creating a BRAW resource %s", key)
	res, err := f.manager.CreateResource(ctx, f.context, f.queue, key.Format.Size, key.Format.Type)
	if err != nil {
		return Resource{}, fmt.Errorf("unable to create a resource %s: %w", key.Format, err)
	}
	if res.Type == ResourceTypeCPU && len(res.Data) < key.Format.Size {
		if err := f.manager.ReleaseResource(ctx, res); err != nil {
			logger.Errorf(ctx, "unable to release a short BRAW resource %s: %v", key, err)
		}
		return Resource{}, fmt.Errorf("the SDK returned a CPU resource of %d bytes instead of %d", len(res.Data), key.Format.Size)
	}
	return res, nil
}

func (f *resourceFactory) Free(
	ctx context.Context,
	buf *bufferpool.Buffer[Resource, resourceKind],
) error {
	logger.Debugf(ctx, "releasing a BRAW resource %s", buf.Key())
	return f.manager.ReleaseResource(ctx, buf.Resource)
}

func resourceBytes(buf *bufferpool.Buffer[Resource, resourceKind]) []byte {
	return buf.Resource.Data[:buf.Format.Size]
}
