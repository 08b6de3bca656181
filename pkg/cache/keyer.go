package cache

// Keyer derives cache keys for the three cacheable pipeline stages. Each key
// combines the hash of the stage input with every option that influences the
// stage output, so option changes never serve stale geometry.
type Keyer interface {
	// ContourKey keys extracted contours by bitmap content and tracing options.
	ContourKey(bitmapHash string, opts ContourKeyOpts) string

	// ProfileKey keys composed 2D profiles by contour hash and geometry options.
	ProfileKey(contourHash string, opts ProfileKeyOpts) string

	// SolidKey keys built solids by profile hash and meshing options.
	SolidKey(profileHash string, opts SolidKeyOpts) string
}

// ContourKeyOpts are the options that shape contour extraction.
type ContourKeyOpts struct {
	Threshold uint8
	Invert    bool
	Tolerance float64
	MinArea   float64
}

// ProfileKeyOpts are the options that shape profile composition.
type ProfileKeyOpts struct {
	TargetMinMm float64
	UnitsToMm   float64
	Wall        float64
	InnerShrink float64
	Clearance   float64
	LipWidth    float64
	EdgeWidth   float64
	DetailMode  string
}

// SolidKeyOpts are the options that shape solid building.
type SolidKeyOpts struct {
	Artifact          string
	Height            float64
	BevelBand         float64
	BevelSteps        int
	LipHeight         float64
	BaseThickness     float64
	DetailRaise       float64
	HandleEnabled     bool
	SegmentsPerCircle int
}

// DefaultKeyer hashes stage inputs and options into namespaced keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

func (k *DefaultKeyer) ContourKey(bitmapHash string, opts ContourKeyOpts) string {
	return hashKey("contour", bitmapHash, opts)
}

func (k *DefaultKeyer) ProfileKey(contourHash string, opts ProfileKeyOpts) string {
	return hashKey("profile", contourHash, opts)
}

func (k *DefaultKeyer) SolidKey(profileHash string, opts SolidKeyOpts) string {
	return hashKey("solid", profileHash, opts)
}

// ScopedKeyer prefixes another keyer's keys, isolating namespaces when one
// backend is shared (per-tenant server caches, test isolation).
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner so every key carries prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ContourKey(bitmapHash string, opts ContourKeyOpts) string {
	return k.prefix + k.inner.ContourKey(bitmapHash, opts)
}

func (k *ScopedKeyer) ProfileKey(contourHash string, opts ProfileKeyOpts) string {
	return k.prefix + k.inner.ProfileKey(contourHash, opts)
}

func (k *ScopedKeyer) SolidKey(profileHash string, opts SolidKeyOpts) string {
	return k.prefix + k.inner.SolidKey(profileHash, opts)
}
