package usecase

import "github.com/xavierca1/funnelsync/internal/entity"

// Stage is the funnel position of one identity key, derived once per
// candidate from the run's conversion snapshot. Deriving it up front keeps
// the transition logic from re-querying mid-evaluation.
type Stage int

const (
	StageUnconverted Stage = iota
	StageCourse
	StageMember
)

func (s Stage) String() string {
	switch s {
	case StageCourse:
		return "course"
	case StageMember:
		return "member"
	default:
		return "unconverted"
	}
}

// conversionSnapshot is the full set of existing conversion records, read
// once before any write of a run is issued. Index is the raw external
// member id; city matching happens at lookup time because legacy rows
// without a city match any city.
type conversionSnapshot struct {
	byExternalID map[string][]*entity.ConversionRecord
}

func newConversionSnapshot(records []*entity.ConversionRecord) *conversionSnapshot {
	s := &conversionSnapshot{byExternalID: make(map[string][]*entity.ConversionRecord)}
	for _, r := range records {
		s.byExternalID[r.ExternalMemberID] = append(s.byExternalID[r.ExternalMemberID], r)
	}
	return s
}

// recordsFor returns the records matching the identity key, honoring the
// one-sided city wildcard.
func (s *conversionSnapshot) recordsFor(externalMemberID, city string) []*entity.ConversionRecord {
	var matched []*entity.ConversionRecord
	for _, r := range s.byExternalID[externalMemberID] {
		if r.MatchesCity(city) {
			matched = append(matched, r)
		}
	}
	return matched
}

// stageFor derives the stage of an identity key and, when the key sits in
// the course stage, the record that a membership discovery must mutate.
func (s *conversionSnapshot) stageFor(externalMemberID, city string) (Stage, *entity.ConversionRecord) {
	var courseRecord *entity.ConversionRecord
	for _, r := range s.recordsFor(externalMemberID, city) {
		if r.MembershipType.IsTerminal() {
			return StageMember, nil
		}
		if r.MembershipType == entity.MembershipCourse && courseRecord == nil {
			courseRecord = r
		}
	}
	if courseRecord != nil {
		return StageCourse, courseRecord
	}
	return StageUnconverted, nil
}

// add keeps the snapshot coherent while a run applies its own writes, so a
// later candidate sharing an identity key sees the earlier decision.
func (s *conversionSnapshot) add(record *entity.ConversionRecord) {
	s.byExternalID[record.ExternalMemberID] = append(s.byExternalID[record.ExternalMemberID], record)
}
