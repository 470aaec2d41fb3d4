package detector

import (
	"SlideScope/pkg/vision"
	"context"
	"errors"
	"image"
	"sync/atomic"
)

// ErrNoReplicas is returned when a pool was built without any detector
// replicas behind it.
var ErrNoReplicas = errors.New("detector pool has no replicas")

// Pool fans inference calls out over independent detector replicas,
// round-robin. Each replica serializes its own calls, so the pool as a
// whole allows up to len(replicas) windows in flight.
type Pool struct {
	replicas []vision.Detector
	next     atomic.Uint64
}

func NewPool(replicas []vision.Detector) *Pool {
	return &Pool{replicas: replicas}
}

func (p *Pool) Size() int {
	return len(p.replicas)
}

func (p *Pool) Infer(ctx context.Context, window image.Image) ([]vision.Detection, error) {
	if len(p.replicas) == 0 {
		return nil, ErrNoReplicas
	}

	idx := p.next.Add(1) - 1
	replica := p.replicas[idx%uint64(len(p.replicas))]
	return replica.Infer(ctx, window)
}
