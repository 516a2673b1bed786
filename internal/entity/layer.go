package entity

type Layer uint8

const (
	LayerGroundFill Layer = iota + 1
	LayerGroundSurface
	LayerTrunk
	LayerLeaf
	LayerFallingLeaf
	LayerObserver
)

func (l Layer) String() string {
	switch l {
	case LayerGroundFill:
		return "ground-fill"
	case LayerGroundSurface:
		return "ground-surface"
	case LayerTrunk:
		return "trunk"
	case LayerLeaf:
		return "leaf"
	case LayerFallingLeaf:
		return "falling-leaf"
	case LayerObserver:
		return "observer"
	default:
		return "unknown"
	}
}

type layerPair struct{ a, b Layer }

var collisionMatrix = map[layerPair]bool{
	{LayerObserver, LayerGroundSurface}:    true,
	{LayerObserver, LayerLeaf}:             true,
	{LayerFallingLeaf, LayerGroundSurface}: true,
}

// Collides reports whether two layers participate in collision resolution.
// The relation is symmetric.
func Collides(a, b Layer) bool {
	return collisionMatrix[layerPair{a, b}] || collisionMatrix[layerPair{b, a}]
}
