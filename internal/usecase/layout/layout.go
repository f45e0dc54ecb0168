// Package layout places people on concentric rings around the viewing user:
// the ring is the org distance, the angular sector is the department.
package layout

import (
	"math"

	"github.com/kailas-cloud/knowwho/internal/domain/network"
)

// Layout constants in canvas pixels and radians.
const (
	CenterRadius        = 20.0
	DefaultRadius       = 16.0
	MinRadius           = 10.0
	MaxRadius           = 36.0
	ringStep            = 70.0
	singleJitter        = 0.12
	groupSpread         = 0.175
	jitterBuckets       = 1000
	outermostFixedRing  = 4
	outermostFixedValue = 380.0
)

var ringRadii = [...]float64{1: 120, 2: 210, 3: 300, 4: 380}

// Position is where a node is drawn. Radius is the display radius of the
// node circle; Ring is the radius of the ring it sits on.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Ring   float64 `json:"ring"`
	Angle  float64 `json:"angle"`
}

// Layout is the positioned network.
type Layout struct {
	Positions   map[string]Position `json:"positions"`
	Departments []string            `json:"departments"`
}

// RingRadius maps an org distance to its ring radius. Distances below 1
// clamp to the first ring.
func RingRadius(distance int) float64 {
	if distance < 1 {
		distance = 1
	}
	if distance > outermostFixedRing {
		return outermostFixedValue + float64(distance-outermostFixedRing)*ringStep
	}
	return ringRadii[distance]
}

// DisplayRadius maps the expertise score (clamped to [0,100]) onto
// [MinRadius, MaxRadius]. A missing score yields DefaultRadius.
func DisplayRadius(m *network.Metrics) float64 {
	if !m.HasExpertise() {
		return DefaultRadius
	}
	s := math.Max(0, math.Min(100, m.Expertise()))
	return MinRadius + s/100*(MaxRadius-MinRadius)
}

// Departments returns distinct departments in first-encountered order.
func Departments(nodes []network.Node) []string {
	seen := make(map[string]struct{}, len(nodes))
	out := make([]string, 0)
	for _, n := range nodes {
		if _, ok := seen[n.Department]; ok {
			continue
		}
		seen[n.Department] = struct{}{}
		out = append(out, n.Department)
	}
	return out
}

// BaseAngle is the sector angle of department i of n; i = 0 points up.
func BaseAngle(i, n int) float64 {
	if n == 0 {
		return -math.Pi / 2
	}
	return float64(i)/float64(n)*2*math.Pi - math.Pi/2
}

// hashID is a 32-bit multiplicative string hash (h = h*31 + c) with
// wrap-around, returned as a non-negative value.
func hashID(id string) uint32 {
	var h int32
	for _, c := range id {
		h = h*31 + int32(c)
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}

// Jitter is the deterministic angular offset of a lone node, in
// [-singleJitter, +singleJitter).
func Jitter(id string) float64 {
	bucket := float64(hashID(id) % jitterBuckets)
	return bucket/jitterBuckets*2*singleJitter - singleJitter
}

type groupKey struct {
	distance   int
	department string
}

// Compute lays out nodes on a width x height canvas. It is pure: the same
// input always yields the same positions.
func Compute(nodes []network.Node, centerID string, width, height float64) Layout {
	cx, cy := width/2, height/2
	depts := Departments(nodes)
	deptIndex := make(map[string]int, len(depts))
	for i, d := range depts {
		deptIndex[d] = i
	}

	groups := make(map[groupKey][]string)
	for _, n := range nodes {
		if n.ID == centerID {
			continue
		}
		k := groupKey{distance: n.Metrics.Distance(), department: n.Department}
		groups[k] = append(groups[k], n.ID)
	}

	positions := make(map[string]Position, len(nodes))
	for _, n := range nodes {
		if n.ID == centerID {
			positions[n.ID] = Position{X: cx, Y: cy, Radius: CenterRadius}
			continue
		}

		d := n.Metrics.Distance()
		members := groups[groupKey{distance: d, department: n.Department}]
		angle := BaseAngle(deptIndex[n.Department], len(depts)) + offset(n.ID, members)
		ring := RingRadius(d)

		positions[n.ID] = Position{
			X:      cx + ring*math.Cos(angle),
			Y:      cy + ring*math.Sin(angle),
			Radius: DisplayRadius(n.Metrics),
			Ring:   ring,
			Angle:  angle,
		}
	}

	return Layout{Positions: positions, Departments: depts}
}

// offset spreads group members evenly across ±groupSpread; a lone member
// gets its id jitter instead.
func offset(id string, members []string) float64 {
	k := len(members)
	if k <= 1 {
		return Jitter(id)
	}
	for j, m := range members {
		if m == id {
			return -groupSpread + float64(j)*(2*groupSpread/float64(k-1))
		}
	}
	return 0
}

