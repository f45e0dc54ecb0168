package network

// DefaultDistance is the ring assigned to nodes without an org distance.
const DefaultDistance = 4

// Metrics is the optional per-person metric bag. Every field may be absent;
// defaults are substituted only through the accessor methods below.
type Metrics struct {
	OrgReportLineDistance  *int     `json:"orgReportLineDistance,omitempty" yaml:"orgReportLineDistance,omitempty"`
	CollabResearchCount    *float64 `json:"collabResearchCount,omitempty" yaml:"collabResearchCount,omitempty"`
	QueryMatchScore        *float64 `json:"queryMatchScore,omitempty" yaml:"queryMatchScore,omitempty"`
	RelatedDocCreatedCount *float64 `json:"relatedDocCreatedCount,omitempty" yaml:"relatedDocCreatedCount,omitempty"`
	Relevance              *float64 `json:"relevance,omitempty" yaml:"relevance,omitempty"`
	ExpertiseScore         *float64 `json:"expertiseScore,omitempty" yaml:"expertiseScore,omitempty"`
}

// Distance returns the org hop count, or DefaultDistance when unknown.
// Safe on a nil receiver.
func (m *Metrics) Distance() int {
	if m == nil || m.OrgReportLineDistance == nil {
		return DefaultDistance
	}
	return *m.OrgReportLineDistance
}

// HasDistance reports whether an org distance was supplied.
func (m *Metrics) HasDistance() bool {
	return m != nil && m.OrgReportLineDistance != nil
}

// Expertise returns the expertise score, 0 when missing.
func (m *Metrics) Expertise() float64 {
	if m == nil {
		return 0
	}
	return valueOr(m.ExpertiseScore, 0)
}

// HasExpertise reports whether an expertise score was supplied.
func (m *Metrics) HasExpertise() bool {
	return m != nil && m.ExpertiseScore != nil
}

// RelevanceValue returns the relevance score, 0 when missing.
func (m *Metrics) RelevanceValue() float64 {
	if m == nil {
		return 0
	}
	return valueOr(m.Relevance, 0)
}

// Values flattens the present metrics into a name → value map using the
// JSON metric names. Absent metrics are omitted.
func (m *Metrics) Values() map[string]float64 {
	out := make(map[string]float64)
	if m == nil {
		return out
	}
	if m.OrgReportLineDistance != nil {
		out["orgReportLineDistance"] = float64(*m.OrgReportLineDistance)
	}
	put := func(name string, v *float64) {
		if v != nil {
			out[name] = *v
		}
	}
	put("collabResearchCount", m.CollabResearchCount)
	put("queryMatchScore", m.QueryMatchScore)
	put("relatedDocCreatedCount", m.RelatedDocCreatedCount)
	put("relevance", m.Relevance)
	put("expertiseScore", m.ExpertiseScore)
	return out
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
