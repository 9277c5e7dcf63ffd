package game

import (
	"math"
	"math/rand"

	"github.com/lcx/arena/wire"
)

const (
	playerSpeed     = 20.0
	playerMaxHealth = 1

	projectileDistance  = 75.0
	projectileDamage    = 1
	projectileLifetime  = 1.0
	projectileHitRadius = 1.25
)

// Level is the headless arena: the spawn points and nothing else. The
// rendering layer owns geometry; the simulation only needs to know where
// players appear.
type Level struct {
	PlayerStarts []wire.Vec3
}

// NewLevel builds the default arena. Spawn points sit on the ground plane,
// mirroring the authored level's player-start markers.
func NewLevel() *Level {
	return &Level{
		PlayerStarts: []wire.Vec3{
			{X: -10, Y: -10},
			{X: 10, Y: -10},
			{X: -10, Y: 10},
			{X: 10, Y: 10},
		},
	}
}

type playerController struct {
	id      int32
	pos     wire.Vec3
	hpr     wire.Vec3
	moveDir wire.Vec2
	aimPos  wire.Vec3
	health  int
	alive   bool
}

func newPlayerController(id int32) *playerController {
	return &playerController{
		id:     id,
		health: playerMaxHealth,
	}
}

func (p *playerController) spawn(pos wire.Vec3) {
	p.pos = pos
	p.health = playerMaxHealth
	p.alive = true
}

func (p *playerController) kill() {
	p.alive = false
}

func (p *playerController) updateMoveAim(moveDir wire.Vec2, aimPos wire.Vec3) {
	if !p.alive {
		return
	}
	p.moveDir = moveDir
	p.aimPos = aimPos
}

func (p *playerController) update(dt float64) {
	if p.health <= 0 && p.alive {
		p.kill()
	}
	if !p.alive {
		return
	}

	dir := normalize2(p.moveDir)
	p.pos.X += dir.X * float32(dt*playerSpeed)
	p.pos.Y += dir.Y * float32(dt*playerSpeed)

	// Face the aim point. Heading 0 looks down +Y; character models face
	// -Y, so flip them around.
	dx := float64(p.aimPos.X - p.pos.X)
	dy := float64(p.aimPos.Y - p.pos.Y)
	if dx != 0 || dy != 0 {
		p.hpr.X = float32(math.Atan2(-dx, dy)*180/math.Pi) - 180
	}
}

// heading returns the unit vector the player currently faces.
func (p *playerController) heading() wire.Vec3 {
	rad := float64(p.hpr.X+180) * math.Pi / 180
	return wire.Vec3{
		X: float32(-math.Sin(rad)),
		Y: float32(math.Cos(rad)),
	}
}

type projectile struct {
	forPlayer int32
	pos       wire.Vec3
	dir       wire.Vec3
	traveled  float64
	done      bool
}

func newProjectile(forPlayer int32, from *playerController) *projectile {
	return &projectile{
		forPlayer: forPlayer,
		pos:       from.pos,
		dir:       from.heading(),
	}
}

func (pr *projectile) update(dt float64) {
	if pr.done {
		return
	}
	step := projectileDistance * dt / projectileLifetime
	pr.pos.X += pr.dir.X * float32(step)
	pr.pos.Y += pr.dir.Y * float32(step)
	pr.pos.Z += pr.dir.Z * float32(step)
	pr.traveled += step
	if pr.traveled >= projectileDistance {
		pr.done = true
	}
}

// hits reports whether the projectile currently overlaps the player.
func (pr *projectile) hits(p *playerController) bool {
	dx := float64(pr.pos.X - p.pos.X)
	dy := float64(pr.pos.Y - p.pos.Y)
	return dx*dx+dy*dy < projectileHitRadius*projectileHitRadius
}

// aiController wanders a bot: every quarter second it rerolls a random move
// direction (or stops) and a random aim point.
type aiController struct {
	id      int32
	accum   float64
	moveDir wire.Vec2
	aimPos  wire.Vec3
	rng     *rand.Rand
}

func newAIController(id int32, rng *rand.Rand) *aiController {
	return &aiController{id: id, rng: rng}
}

func (a *aiController) update(dt float64) {
	a.accum += dt
	if a.accum <= 0.25 {
		return
	}
	if a.rng.Float64() > 0.5 {
		a.moveDir = normalize2(wire.Vec2{
			X: float32(a.rng.Float64()*2 - 1),
			Y: float32(a.rng.Float64()*2 - 1),
		})
	} else {
		a.moveDir = wire.Vec2{}
	}
	a.aimPos = normalize3(wire.Vec3{
		X: float32(a.rng.Float64()*2 - 1),
		Y: float32(a.rng.Float64()*2 - 1),
		Z: float32(a.rng.Float64()*2 - 1),
	})
	a.accum = 0
}

func normalize2(v wire.Vec2) wire.Vec2 {
	l := math.Sqrt(float64(v.X*v.X + v.Y*v.Y))
	if l == 0 {
		return wire.Vec2{}
	}
	return wire.Vec2{X: v.X / float32(l), Y: v.Y / float32(l)}
}

func normalize3(v wire.Vec3) wire.Vec3 {
	l := math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z))
	if l == 0 {
		return wire.Vec3{}
	}
	return wire.Vec3{X: v.X / float32(l), Y: v.Y / float32(l), Z: v.Z / float32(l)}
}
