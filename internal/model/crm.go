package model

// Tier buckets lead quality, derived from LeadScore by the synthesis model.
type Tier string

const (
	TierCold   Tier = "Cold"
	TierWarm   Tier = "Warm"
	TierHot    Tier = "Hot"
	TierRedHot Tier = "Red-hot"
)

// ValidTier reports whether t is one of the four defined buckets.
func ValidTier(t Tier) bool {
	switch t {
	case TierCold, TierWarm, TierHot, TierRedHot:
		return true
	}
	return false
}

// CRMRecord is the normalized, UI-facing intelligence record synthesized from
// a ResearchResult plus the form data. Every field is always present; values
// the synthesis could not map carry the sentinel. Monetary fields stay
// free-text as returned by the model.
type CRMRecord struct {
	EstimatedFundingTotal            string `json:"estimatedFundingTotal"`
	LastFundingRound                 string `json:"lastFundingRound"`
	EstimatedAnnualRevenue           string `json:"estimatedAnnualRevenue"`
	AdSpendLevel                     string `json:"adSpendLevel"`
	EstimatedCreativeMarketingBudget string `json:"estimatedCreativeMarketingBudget"`
	PrimaryDecisionMaker             string `json:"primaryDecisionMaker"`
	RoleTitle                        string `json:"roleTitle"`
	LinkedInProfile                  string `json:"linkedinProfile"`
	Email                            string `json:"email"`
	Phone                            string `json:"phone"`
	CurrentAgency                    string `json:"currentAgency"`
	WhetherTheyreHiringForGrowth     string `json:"whetherTheyreHiringForGrowth"`
	KeyOpenRoles                     string `json:"keyOpenRoles"`
	LeadScore                        string `json:"leadScore"`
	Tier                             Tier   `json:"tier"`
}

// Normalize backfills the sentinel into any empty field so downstream
// consumers never see a missing value.
func (c *CRMRecord) Normalize() {
	for _, p := range []*string{
		&c.EstimatedFundingTotal, &c.LastFundingRound, &c.EstimatedAnnualRevenue,
		&c.AdSpendLevel, &c.EstimatedCreativeMarketingBudget,
		&c.PrimaryDecisionMaker, &c.RoleTitle, &c.LinkedInProfile,
		&c.Email, &c.Phone, &c.CurrentAgency,
		&c.WhetherTheyreHiringForGrowth, &c.KeyOpenRoles, &c.LeadScore,
	} {
		if *p == "" {
			*p = Unknown
		}
	}
	if c.Tier == "" {
		c.Tier = TierCold
	}
}
