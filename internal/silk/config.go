package silk

// Config gathers every tunable of the silk core. Zero or negative fields are
// replaced by their defaults in Normalized.
type Config struct {
	Tether  TetherConfig  `json:"tether"`
	Bridge  BridgeConfig  `json:"bridge"`
	Builder BuilderConfig `json:"builder"`
	Climb   ClimbConfig   `json:"climb"`
	Impact  ImpactConfig  `json:"impact"`
}

// TetherConfig tunes the shoot, attach and rope behaviour of a tether.
type TetherConfig struct {
	ShootSpeed          float64 `json:"shootSpeed" jsonschema:"minimum=0,description=Launch speed of the tether tip per tick"`
	MaxLength           float64 `json:"maxLength" jsonschema:"minimum=0,description=Maximum rope length"`
	Gravity             float64 `json:"gravity" jsonschema:"minimum=0"`
	WallClearance       float64 `json:"wallClearance" jsonschema:"minimum=0,description=Distance attach and via points are pushed off walls"`
	ViaPointCooldown    int     `json:"viaPointCooldown" jsonschema:"minimum=0,description=Ticks a via point survives before it can be removed"`
	MaxViaPoints        int     `json:"maxViaPoints" jsonschema:"minimum=1"`
	ViaPointMinSpacing  float64 `json:"viaPointMinSpacing" jsonschema:"minimum=0"`
	ObjectAttachPadding float64 `json:"objectAttachPadding" jsonschema:"minimum=0"`
	ObjectMinDistance   float64 `json:"objectMinDistance" jsonschema:"minimum=0"`
	ObjectPullForce     float64 `json:"objectPullForce" jsonschema:"minimum=0"`
	ObjectMaxSpeed      float64 `json:"objectMaxSpeed" jsonschema:"minimum=0"`
	ObjectStopDistance  float64 `json:"objectStopDistance" jsonschema:"minimum=0"`
	BridgePullForce     float64 `json:"bridgePullForce" jsonschema:"minimum=0"`
	BridgePullRadius    float64 `json:"bridgePullRadius" jsonschema:"minimum=0"`
	ReturnSpeed         float64 `json:"returnSpeed" jsonschema:"minimum=0"`
	ReturnResetDistance float64 `json:"returnResetDistance" jsonschema:"minimum=0"`
	MaxFlightTicks      int     `json:"maxFlightTicks" jsonschema:"minimum=1"`
	ElasticPull         float64 `json:"elasticPull" jsonschema:"minimum=0"`
	ElasticMaxPull      float64 `json:"elasticMaxPull" jsonschema:"minimum=0"`
	ElasticVelDamping   float64 `json:"elasticVelDamping" jsonschema:"minimum=0,maximum=1"`
	ElasticGain         float64 `json:"elasticGain" jsonschema:"minimum=0"`
	ElasticMax          float64 `json:"elasticMax" jsonschema:"minimum=0,maximum=1"`
	ElasticDecay        float64 `json:"elasticDecay" jsonschema:"minimum=0"`
	LengthRate          float64 `json:"lengthRate" jsonschema:"minimum=0"`
	ReelStep            float64 `json:"reelStep" jsonschema:"minimum=0"`
	ReelMin             float64 `json:"reelMin" jsonschema:"minimum=0"`
	ReelOutMax          float64 `json:"reelOutMax" jsonschema:"minimum=0"`
	ReelForce           float64 `json:"reelForce" jsonschema:"minimum=0"`
	SwingForce          float64 `json:"swingForce" jsonschema:"minimum=0"`
	SwingDrop           float64 `json:"swingDrop" jsonschema:"minimum=0"`
}

// BridgeConfig tunes the cable simulation.
type BridgeConfig struct {
	NodeMass           float64 `json:"nodeMass" jsonschema:"minimum=0"`
	Gravity            float64 `json:"gravity" jsonschema:"minimum=0"`
	Damping            float64 `json:"damping" jsonschema:"minimum=0,maximum=1"`
	Iterations         int     `json:"iterations" jsonschema:"minimum=1,description=Relaxation iterations per tick"`
	ConstraintSweeps   int     `json:"constraintSweeps" jsonschema:"minimum=1"`
	Slack              float64 `json:"slack" jsonschema:"minimum=1,description=Cable length as a multiple of anchor distance"`
	Health             float64 `json:"health" jsonschema:"minimum=0"`
	ForceScale         float64 `json:"forceScale" jsonschema:"minimum=0"`
	ForceSpread        int     `json:"forceSpread" jsonschema:"minimum=0"`
	ForceRadius        float64 `json:"forceRadius" jsonschema:"minimum=0"`
	SilkTileDistance   float64 `json:"silkTileDistance" jsonschema:"minimum=0"`
	TerrainRestitution float64 `json:"terrainRestitution" jsonschema:"minimum=0,maximum=1"`
}

// BuilderConfig tunes the virtual projectile used to place bridges.
type BuilderConfig struct {
	ShootSpeed       float64 `json:"shootSpeed" jsonschema:"minimum=0"`
	Gravity          float64 `json:"gravity" jsonschema:"minimum=0"`
	MaxDistance      float64 `json:"maxDistance" jsonschema:"minimum=0"`
	PriorityDistance float64 `json:"priorityDistance" jsonschema:"minimum=0,description=Aim hint distance under which terrain hits win over bridges"`
	PriorityDot      float64 `json:"priorityDot" jsonschema:"minimum=-1,maximum=1"`
	CancelDot        float64 `json:"cancelDot" jsonschema:"minimum=-1,maximum=1"`
	ObjectPadding    float64 `json:"objectPadding" jsonschema:"minimum=0"`
	BeamTolerance    float64 `json:"beamTolerance" jsonschema:"minimum=0"`
	TileGrow         float64 `json:"tileGrow" jsonschema:"minimum=0"`
	MaxFlightTicks   int     `json:"maxFlightTicks" jsonschema:"minimum=1"`
}

// ClimbConfig tunes the climb controller.
type ClimbConfig struct {
	GrabRange       float64 `json:"grabRange" jsonschema:"minimum=0"`
	PoleRange       float64 `json:"poleRange" jsonschema:"minimum=0"`
	SwitchDuration  int     `json:"switchDuration" jsonschema:"minimum=1"`
	SwitchProbe     float64 `json:"switchProbe" jsonschema:"minimum=0"`
	AttachAngle     float64 `json:"attachAngle" jsonschema:"minimum=0,maximum=90"`
	HysteresisAngle float64 `json:"hysteresisAngle" jsonschema:"minimum=0,maximum=90"`
	VerticalSpeed   float64 `json:"verticalSpeed" jsonschema:"minimum=0"`
	HorizontalSpeed float64 `json:"horizontalSpeed" jsonschema:"minimum=0"`
	Smoothing       float64 `json:"smoothing" jsonschema:"minimum=0,maximum=1"`
	WeightFactor    float64 `json:"weightFactor" jsonschema:"minimum=0"`
	JumpSpeedHead   float64 `json:"jumpSpeedHead" jsonschema:"minimum=0"`
	JumpSpeedBody   float64 `json:"jumpSpeedBody" jsonschema:"minimum=0"`
	TangentStep     float64 `json:"tangentStep" jsonschema:"minimum=0,maximum=0.5"`
	VerticalDamping float64 `json:"verticalDamping" jsonschema:"minimum=0,maximum=1"`
}

// ImpactConfig tunes how external bodies interact with bridges.
type ImpactConfig struct {
	DamageFactor float64 `json:"damageFactor" jsonschema:"minimum=0"`
	ForceFactor  float64 `json:"forceFactor" jsonschema:"minimum=0"`
	Restitution  float64 `json:"restitution" jsonschema:"minimum=0,maximum=1"`
}

func DefaultConfig() Config {
	return Config{
		Tether: TetherConfig{
			ShootSpeed:          50,
			MaxLength:           1200,
			Gravity:             0.9,
			WallClearance:       1.5,
			ViaPointCooldown:    4,
			MaxViaPoints:        50,
			ViaPointMinSpacing:  3,
			ObjectAttachPadding: 5,
			ObjectMinDistance:   60,
			ObjectPullForce:     1.8,
			ObjectMaxSpeed:      25,
			ObjectStopDistance:  20,
			BridgePullForce:     5,
			BridgePullRadius:    32,
			ReturnSpeed:         5,
			ReturnResetDistance: 40,
			MaxFlightTicks:      600,
			ElasticPull:         0.6,
			ElasticMaxPull:      15,
			ElasticVelDamping:   0.4,
			ElasticGain:         0.15,
			ElasticMax:          0.8,
			ElasticDecay:        0.05,
			LengthRate:          10,
			ReelStep:            4,
			ReelMin:             0.1,
			ReelOutMax:          800,
			ReelForce:           0.8,
			SwingForce:          0.5,
			SwingDrop:           0.3,
		},
		Bridge: BridgeConfig{
			NodeMass:           0.1,
			Gravity:            0.1,
			Damping:            0.975,
			Iterations:         8,
			ConstraintSweeps:   5,
			Slack:              1.15,
			Health:             30,
			ForceScale:         0.03,
			ForceSpread:        2,
			ForceRadius:        24,
			SilkTileDistance:   8,
			TerrainRestitution: 0.3,
		},
		Builder: BuilderConfig{
			ShootSpeed:       50,
			Gravity:          0.9,
			MaxDistance:      1200,
			PriorityDistance: 150,
			PriorityDot:      0.5,
			CancelDot:        -0.6,
			ObjectPadding:    5,
			BeamTolerance:    10,
			TileGrow:         2,
			MaxFlightTicks:   600,
		},
		Climb: ClimbConfig{
			GrabRange:       22,
			PoleRange:       22,
			SwitchDuration:  8,
			SwitchProbe:     8,
			AttachAngle:     45,
			HysteresisAngle: 55,
			VerticalSpeed:   1.7,
			HorizontalSpeed: 1.5,
			Smoothing:       0.3,
			WeightFactor:    1.5,
			JumpSpeedHead:   9,
			JumpSpeedBody:   8,
			TangentStep:     0.05,
			VerticalDamping: 0.8,
		},
		Impact: ImpactConfig{
			DamageFactor: 0.6,
			ForceFactor:  1.5,
			Restitution:  0.3,
		},
	}
}

func positive(value, fallback float64) float64 {
	if value <= 0 {
		return fallback
	}
	return value
}

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func (cfg Config) normalized() Config {
	def := DefaultConfig()
	n := cfg

	t, dt := &n.Tether, def.Tether
	t.ShootSpeed = positive(t.ShootSpeed, dt.ShootSpeed)
	t.MaxLength = positive(t.MaxLength, dt.MaxLength)
	t.Gravity = positive(t.Gravity, dt.Gravity)
	t.WallClearance = positive(t.WallClearance, dt.WallClearance)
	t.ViaPointCooldown = positiveInt(t.ViaPointCooldown, dt.ViaPointCooldown)
	t.MaxViaPoints = positiveInt(t.MaxViaPoints, dt.MaxViaPoints)
	t.ViaPointMinSpacing = positive(t.ViaPointMinSpacing, dt.ViaPointMinSpacing)
	t.ObjectAttachPadding = positive(t.ObjectAttachPadding, dt.ObjectAttachPadding)
	t.ObjectMinDistance = positive(t.ObjectMinDistance, dt.ObjectMinDistance)
	t.ObjectPullForce = positive(t.ObjectPullForce, dt.ObjectPullForce)
	t.ObjectMaxSpeed = positive(t.ObjectMaxSpeed, dt.ObjectMaxSpeed)
	t.ObjectStopDistance = positive(t.ObjectStopDistance, dt.ObjectStopDistance)
	t.BridgePullForce = positive(t.BridgePullForce, dt.BridgePullForce)
	t.BridgePullRadius = positive(t.BridgePullRadius, dt.BridgePullRadius)
	t.ReturnSpeed = positive(t.ReturnSpeed, dt.ReturnSpeed)
	t.ReturnResetDistance = positive(t.ReturnResetDistance, dt.ReturnResetDistance)
	t.MaxFlightTicks = positiveInt(t.MaxFlightTicks, dt.MaxFlightTicks)
	t.ElasticPull = positive(t.ElasticPull, dt.ElasticPull)
	t.ElasticMaxPull = positive(t.ElasticMaxPull, dt.ElasticMaxPull)
	t.ElasticVelDamping = positive(t.ElasticVelDamping, dt.ElasticVelDamping)
	t.ElasticGain = positive(t.ElasticGain, dt.ElasticGain)
	t.ElasticMax = positive(t.ElasticMax, dt.ElasticMax)
	t.ElasticDecay = positive(t.ElasticDecay, dt.ElasticDecay)
	t.LengthRate = positive(t.LengthRate, dt.LengthRate)
	t.ReelStep = positive(t.ReelStep, dt.ReelStep)
	t.ReelMin = positive(t.ReelMin, dt.ReelMin)
	t.ReelOutMax = positive(t.ReelOutMax, dt.ReelOutMax)
	t.ReelForce = positive(t.ReelForce, dt.ReelForce)
	t.SwingForce = positive(t.SwingForce, dt.SwingForce)
	t.SwingDrop = positive(t.SwingDrop, dt.SwingDrop)

	b, db := &n.Bridge, def.Bridge
	b.NodeMass = positive(b.NodeMass, db.NodeMass)
	b.Gravity = positive(b.Gravity, db.Gravity)
	b.Damping = positive(b.Damping, db.Damping)
	if b.Damping > 1 {
		b.Damping = 1
	}
	b.Iterations = positiveInt(b.Iterations, db.Iterations)
	b.ConstraintSweeps = positiveInt(b.ConstraintSweeps, db.ConstraintSweeps)
	if b.Slack < 1 {
		b.Slack = db.Slack
	}
	b.Health = positive(b.Health, db.Health)
	b.ForceScale = positive(b.ForceScale, db.ForceScale)
	if b.ForceSpread < 0 {
		b.ForceSpread = db.ForceSpread
	}
	b.ForceRadius = positive(b.ForceRadius, db.ForceRadius)
	b.SilkTileDistance = positive(b.SilkTileDistance, db.SilkTileDistance)
	b.TerrainRestitution = positive(b.TerrainRestitution, db.TerrainRestitution)

	bu, dbu := &n.Builder, def.Builder
	bu.ShootSpeed = positive(bu.ShootSpeed, dbu.ShootSpeed)
	bu.Gravity = positive(bu.Gravity, dbu.Gravity)
	bu.MaxDistance = positive(bu.MaxDistance, dbu.MaxDistance)
	bu.PriorityDistance = positive(bu.PriorityDistance, dbu.PriorityDistance)
	if bu.PriorityDot == 0 {
		bu.PriorityDot = dbu.PriorityDot
	}
	if bu.CancelDot == 0 {
		bu.CancelDot = dbu.CancelDot
	}
	bu.ObjectPadding = positive(bu.ObjectPadding, dbu.ObjectPadding)
	bu.BeamTolerance = positive(bu.BeamTolerance, dbu.BeamTolerance)
	bu.TileGrow = positive(bu.TileGrow, dbu.TileGrow)
	bu.MaxFlightTicks = positiveInt(bu.MaxFlightTicks, dbu.MaxFlightTicks)

	c, dc := &n.Climb, def.Climb
	c.GrabRange = positive(c.GrabRange, dc.GrabRange)
	c.PoleRange = positive(c.PoleRange, dc.PoleRange)
	c.SwitchDuration = positiveInt(c.SwitchDuration, dc.SwitchDuration)
	c.SwitchProbe = positive(c.SwitchProbe, dc.SwitchProbe)
	c.AttachAngle = positive(c.AttachAngle, dc.AttachAngle)
	c.HysteresisAngle = positive(c.HysteresisAngle, dc.HysteresisAngle)
	if c.HysteresisAngle < c.AttachAngle {
		c.HysteresisAngle = c.AttachAngle
	}
	c.VerticalSpeed = positive(c.VerticalSpeed, dc.VerticalSpeed)
	c.HorizontalSpeed = positive(c.HorizontalSpeed, dc.HorizontalSpeed)
	c.Smoothing = positive(c.Smoothing, dc.Smoothing)
	c.WeightFactor = positive(c.WeightFactor, dc.WeightFactor)
	c.JumpSpeedHead = positive(c.JumpSpeedHead, dc.JumpSpeedHead)
	c.JumpSpeedBody = positive(c.JumpSpeedBody, dc.JumpSpeedBody)
	c.TangentStep = positive(c.TangentStep, dc.TangentStep)
	c.VerticalDamping = positive(c.VerticalDamping, dc.VerticalDamping)

	i, di := &n.Impact, def.Impact
	i.DamageFactor = positive(i.DamageFactor, di.DamageFactor)
	i.ForceFactor = positive(i.ForceFactor, di.ForceFactor)
	i.Restitution = positive(i.Restitution, di.Restitution)
	return n
}

func (cfg Config) Normalized() Config {
	return cfg.normalized()
}
