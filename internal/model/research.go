package model

import "time"

// GapTag identifies a ResearchResult section eligible for fallback re-querying.
type GapTag string

const (
	GapRevenue GapTag = "revenue"
	GapHiring  GapTag = "hiring"
	GapAgency  GapTag = "agency"
	GapNews    GapTag = "news"
)

// Funding holds funding intelligence.
type Funding struct {
	TotalFunding  Field `json:"totalFunding"`
	LastRound     Field `json:"lastRound"`
	FundingRounds Field `json:"fundingRounds"`
}

// Revenue holds revenue intelligence.
type Revenue struct {
	AnnualRevenue Field `json:"annualRevenue"`
	RevenueRange  Field `json:"revenueRange"`
}

// People holds leadership intelligence.
type People struct {
	CEO              Field    `json:"ceo"`
	KeyDecisionMaker Field    `json:"keyDecisionMaker"`
	LinkedInProfiles []string `json:"linkedinProfiles"`
}

// Hiring holds hiring-signal intelligence.
type Hiring struct {
	IsHiring      Field    `json:"isHiring"`
	OpenRoles     []string `json:"openRoles"`
	HiringSignals Field    `json:"hiringSignals"`
}

// Agency holds agency-relationship intelligence.
type Agency struct {
	CurrentAgency      Field `json:"currentAgency"`
	AgencyRelationship Field `json:"agencyRelationship"`
}

// News holds recent-news intelligence.
type News struct {
	RecentAnnouncements []string `json:"recentAnnouncements"`
	CompanyUpdates      Field    `json:"companyUpdates"`
}

// ResearchResult is the canonical six-section intelligence object produced by
// the primary research query. Every scalar leaf is a Field (resolved value or
// the sentinel), every list leaf is a non-nil slice; Normalize enforces this
// after unmarshaling.
type ResearchResult struct {
	Funding Funding `json:"funding"`
	Revenue Revenue `json:"revenue"`
	People  People  `json:"people"`
	Hiring  Hiring  `json:"hiring"`
	Agency  Agency  `json:"agency"`
	News    News    `json:"news"`

	SearchedAt time.Time `json:"searchDate,omitzero"`
}

// Normalize replaces nil list leaves with empty slices and drops empty or
// sentinel entries from lists.
func (r *ResearchResult) Normalize() {
	r.People.LinkedInProfiles = cleanList(r.People.LinkedInProfiles)
	r.Hiring.OpenRoles = cleanList(r.Hiring.OpenRoles)
	r.News.RecentAnnouncements = cleanList(r.News.RecentAnnouncements)
}

// Gaps returns the set of sections still unresolved after the primary query,
// in a fixed order. A section is a gap when its anchor scalar is unresolved
// (revenue.annualRevenue, hiring.isHiring, agency.currentAgency) or, for
// news, when no announcements were found.
func (r *ResearchResult) Gaps() []GapTag {
	var gaps []GapTag
	if !r.Revenue.AnnualRevenue.IsKnown() {
		gaps = append(gaps, GapRevenue)
	}
	if !r.Hiring.IsHiring.IsKnown() {
		gaps = append(gaps, GapHiring)
	}
	if !r.Agency.CurrentAgency.IsKnown() {
		gaps = append(gaps, GapAgency)
	}
	if len(r.News.RecentAnnouncements) == 0 {
		gaps = append(gaps, GapNews)
	}
	return gaps
}

// KnownFieldCount returns how many scalar leaves hold resolved values.
// Used for reporting; lead scoring itself is delegated to the synthesis model.
func (r *ResearchResult) KnownFieldCount() int {
	count := 0
	for _, f := range []Field{
		r.Funding.TotalFunding, r.Funding.LastRound, r.Funding.FundingRounds,
		r.Revenue.AnnualRevenue, r.Revenue.RevenueRange,
		r.People.CEO, r.People.KeyDecisionMaker,
		r.Hiring.IsHiring, r.Hiring.HiringSignals,
		r.Agency.CurrentAgency, r.Agency.AgencyRelationship,
		r.News.CompanyUpdates,
	} {
		if f.IsKnown() {
			count++
		}
	}
	return count
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || s == Unknown {
			continue
		}
		out = append(out, s)
	}
	return out
}
