package etc

// SourceExtent classifies a target as an unresolved point source or an
// extended source filling the beam.
type SourceExtent int

const (
	PointSource SourceExtent = iota
	ExtendedSource
)

func (e SourceExtent) String() string {
	if e == ExtendedSource {
		return "extended"
	}
	return "point"
}

// Signal carries the target flux through the optical chain together with the
// extent tag and the obstruction accumulated by the traversed components.
// Point sources carry a spectral flux density, extended sources a spectral
// radiance.
type Signal struct {
	Flux        *SpectralQty
	Extent      SourceExtent
	Obstruction float64
}

// Radiant is a node of the radiation transport chain. Signal propagates the
// target flux through the node, Background the accumulated stray radiance.
// Both are pure functions of the node's configuration and its parent.
type Radiant interface {
	Signal() (Signal, error)
	Background() (*SpectralQty, error)
}
