package pricing

import (
	"context"

	"github.com/fleetflow/leadflow/internal/errs"
	"github.com/fleetflow/leadflow/internal/model"
)

// Distance is the routing collaborator's answer for a lane: miles plus a 0..1
// certainty in the resolution (road-network match vs. interpolation).
type Distance struct {
	Miles     float64 `json:"miles"`
	Certainty float64 `json:"certainty"`
}

// DistanceResolver is the routing collaborator. A lane it cannot resolve is a
// NotFoundError and makes the quote a hard failure.
type DistanceResolver interface {
	ResolveDistance(ctx context.Context, origin, destination string) (Distance, error)
}

// MatrixResolver answers from a precomputed lane-distance matrix. Forward and
// reverse directions resolve to the same mileage.
type MatrixResolver struct {
	miles     map[string]float64
	certainty float64
}

// NewMatrixResolver builds a resolver over lane keys of the form
// "origin->destination".
func NewMatrixResolver(miles map[string]float64, certainty float64) *MatrixResolver {
	if certainty <= 0 || certainty > 1 {
		certainty = 1
	}
	return &MatrixResolver{miles: miles, certainty: certainty}
}

func (r *MatrixResolver) ResolveDistance(_ context.Context, origin, destination string) (Distance, error) {
	lane := model.NewLane(origin, destination)
	if m, ok := r.miles[lane.String()]; ok {
		return Distance{Miles: m, Certainty: r.certainty}, nil
	}
	reverse := model.NewLane(destination, origin)
	if m, ok := r.miles[reverse.String()]; ok {
		return Distance{Miles: m, Certainty: r.certainty}, nil
	}
	return Distance{}, errs.NewNotFound("lane", lane.String())
}
