package light

// DefaultShadowBias is the default constant depth bias applied to shadow
// comparisons to reduce shadow acne artifacts.
const DefaultShadowBias float32 = 0.001

// DefaultShadowNormalBiasScale is the multiplier applied to a shadow view's
// texel world-size to compute the normal-offset bias. Higher values push
// the shadow sample point further along the surface normal, reducing
// self-shadowing on concave geometry at the cost of slight shadow
// detachment from contact points. Typical values are 2.0–4.0.
const DefaultShadowNormalBiasScale float32 = 3.0

// NoShadow is the GPULight.ShadowIndex of a light without shadow views.
const NoShadow uint32 = 0xFFFFFFFF

// Shadow view counts per light type. A directional light uses one view per
// cascade, see CascadeConfig.
const (
	PointShadowViews = 6
	SpotShadowViews  = 1
)
