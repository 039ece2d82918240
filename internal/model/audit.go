package model

import "time"

// AuditStatus is the lifecycle state of an audit document.
type AuditStatus string

const (
	AuditStatusDraft    AuditStatus = "Draft"
	AuditStatusApproved AuditStatus = "Approved"
)

// CompanyOverview summarizes the base company profile.
type CompanyOverview struct {
	Profile  string `json:"profile"`
	Industry string `json:"industry"`
	Location string `json:"location"`
}

// FundingGrowthStage assesses funding and growth posture.
type FundingGrowthStage struct {
	FundingStatus       string `json:"fundingStatus"`
	GrowthIndicators    string `json:"growthIndicators"`
	InvestmentReadiness string `json:"investmentReadiness"`
}

// LeadershipTeamStructure analyzes decision makers and team composition.
type LeadershipTeamStructure struct {
	DecisionMakerProfile string `json:"decisionMakerProfile"`
	OutreachReadiness    string `json:"outreachReadiness"`
	TeamStructure        string `json:"teamStructure"`
}

// MarketingAgencyPresence covers agency relationships and spend maturity.
type MarketingAgencyPresence struct {
	CurrentAgency     string `json:"currentAgency"`
	AdSpendPatterns   string `json:"adSpendPatterns"`
	MarketingMaturity string `json:"marketingMaturity"`
}

// CreativeStrategyGaps lists conversion and messaging weaknesses.
type CreativeStrategyGaps struct {
	CROOpportunities string `json:"croOpportunities"`
	MessagingGaps    string `json:"messagingGaps"`
	ContentCadence   string `json:"contentCadence"`
	AdFatigue        string `json:"adFatigue"`
	LandingAlignment string `json:"landingAlignment"`
	EmailBasics      string `json:"emailBasics"`
}

// IndustryOpportunities covers format, hook, and platform openings.
type IndustryOpportunities struct {
	Formats        string `json:"formats"`
	Hooks          string `json:"hooks"`
	PlatformShifts string `json:"platformShifts"`
}

// Competitor is one entry in the competitive benchmark.
type Competitor struct {
	Name          string `json:"name"`
	SocialCadence string `json:"socialCadence"`
	AdVariants    string `json:"adVariants"`
	SiteSpeed     string `json:"siteSpeed"`
	ProofDensity  string `json:"proofDensity"`
}

// CompetitiveBenchmark compares the company against its top competitors.
type CompetitiveBenchmark struct {
	TopCompetitors       []Competitor `json:"topCompetitors"`
	CompetitiveAdvantage string       `json:"competitiveAdvantage"`
}

// HiringTalentStrategy assesses staffing against growth plans.
type HiringTalentStrategy struct {
	GrowthStaffing string `json:"growthStaffing"`
	TalentGaps     string `json:"talentGaps"`
	HiringSignals  string `json:"hiringSignals"`
}

// ROIMove is one immediately actionable recommendation.
type ROIMove struct {
	Action       string `json:"action"`
	Owner        string `json:"owner"`
	Steps        string `json:"steps"`
	ExpectedLift string `json:"expectedLift"`
	Metric       string `json:"metric"`
}

// AuditSummary is the client-facing executive wrap-up.
type AuditSummary struct {
	ExecutiveSummary string `json:"executiveSummary"`
	PriorityLevel    string `json:"priorityLevel"`
	EstimatedValue   string `json:"estimatedValue"`
}

// AuditMetadata tracks document lifecycle state.
type AuditMetadata struct {
	Status        AuditStatus `json:"status"`
	GeneratedDate time.Time   `json:"generatedDate"`
	AuditVersion  string      `json:"auditVersion"`
}

// AuditRecord is the long-form structured marketing audit derived from a
// CRMRecord. Enhancement replaces the record wholesale while preserving the
// shape; any content change resets status to Draft, and only a successful
// save transitions Draft to Approved.
type AuditRecord struct {
	CompanyOverview         CompanyOverview         `json:"companyOverview"`
	FundingGrowthStage      FundingGrowthStage      `json:"fundingGrowthStage"`
	LeadershipTeamStructure LeadershipTeamStructure `json:"leadershipTeamStructure"`
	MarketingAgencyPresence MarketingAgencyPresence `json:"marketingAgencyPresence"`
	CreativeStrategyGaps    CreativeStrategyGaps    `json:"creativeStrategyGaps"`
	IndustryOpportunities   IndustryOpportunities   `json:"industryOpportunities"`
	CompetitiveBenchmark    CompetitiveBenchmark    `json:"competitiveBenchmark"`
	HiringTalentStrategy    HiringTalentStrategy    `json:"hiringTalentStrategy"`
	ImmediateROIMoves       []ROIMove               `json:"immediateROIMoves"`
	AuditSummary            AuditSummary            `json:"auditSummary"`
	AuditMetadata           AuditMetadata           `json:"auditMetadata"`
}

// Normalize ensures list sections are non-nil and metadata has a valid
// initial state.
func (a *AuditRecord) Normalize() {
	if a.ImmediateROIMoves == nil {
		a.ImmediateROIMoves = []ROIMove{}
	}
	if a.CompetitiveBenchmark.TopCompetitors == nil {
		a.CompetitiveBenchmark.TopCompetitors = []Competitor{}
	}
	if a.AuditMetadata.Status == "" {
		a.AuditMetadata.Status = AuditStatusDraft
	}
	if a.AuditMetadata.AuditVersion == "" {
		a.AuditMetadata.AuditVersion = "1.0"
	}
}

// Approve marks the audit Approved after a successful save.
func (a *AuditRecord) Approve() {
	a.AuditMetadata.Status = AuditStatusApproved
}
