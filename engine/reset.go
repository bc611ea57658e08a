/*
reset.go - Post-Event Reset Resolver

PURPOSE:
  Computes what a successful draw does to the winner's standing: points
  zero out, and once-only ("OIL") or cool-down rules may bar re-entry.
  A ban length of zero is the once-in-a-lifetime case - the category is
  closed forever; any other length is a cool-down ending at
  awardYear + 1 + banYears (the award year itself does not count).

  The resolver also collects every later plan year still referencing
  the position, because those entries are now planning a pursuit the
  rules no longer allow. Downstream the dispatcher turns them into
  removals (permanent ban) or recalculations (cool-down).
*/
package engine

// PostAwardResolution is the rule outcome of a successful draw.
type PostAwardResolution struct {
	PointsZeroed     int
	BanYears         int
	NextEligibleYear *int // nil when the ban is permanent
	AffectedYears    []int
	IsPermanentBan   bool
}

// ResolvePostAward computes the eligibility consequences of an award.
// Positions with no ban rule return a resolution with zero ban years
// and a next-eligible year of awardYear+1.
func ResolvePostAward(pos Position, awardYear, priorPoints int, plan Plan, rules RuleSet) PostAwardResolution {
	res := PostAwardResolution{
		PointsZeroed:  priorPoints,
		AffectedYears: []int{},
	}

	if rule, ok := rules.Rule(pos.Jurisdiction); ok {
		if ban := rule.BanFor(pos.Category); ban != nil {
			res.BanYears = ban.BanYears
			res.IsPermanentBan = ban.Permanent()
		}
	}

	if !res.IsPermanentBan {
		next := awardYear + 1 + res.BanYears
		res.NextEligibleYear = &next
	}

	for _, year := range plan.YearsReferencing(pos) {
		if year > awardYear {
			res.AffectedYears = append(res.AffectedYears, year)
		}
	}

	return res
}
