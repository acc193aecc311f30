// Package visibility maps an organizational unit to the predicate deciding
// which complaints its members may see. The table is static configuration;
// every unit resolves to exactly one rule, with direct office-id equality as
// the fallback for units not listed.
package visibility

import (
	"strings"

	"github.com/foshrdd/grievance/pkg/model"
)

// Rule is a structured visibility predicate evaluated against the filing
// employee and the complaint row. Zero-valued fields are inactive.
type Rule struct {
	OfficeIDs    []uint
	OfficeMin    uint
	OfficeMax    uint
	ExtraOffices []uint

	Gender          string // lowercase, matched case-insensitively
	RequireCategory string
	ExcludeCategory string

	// CommentContains / CommentExcludes match case-insensitively against
	// the complaint's additional comments.
	CommentContains string
	CommentExcludes string

	// RCAContains matches against round-0 or round-1 RCA text.
	RCAContains string

	RefMin uint
	RefMax uint

	SiteIn    []string
	SiteNotIn []string

	// HarassmentCarveOut admits Harassment complaints from the rule's
	// offices regardless of the gender filter (unit 146 policy).
	HarassmentCarveOut bool
}

var rules = map[uint]Rule{
	70: {OfficeIDs: []uint{60, 61, 62, 63, 64, 65, 66, 67, 68, 69, 70, 71, 221, 222, 223, 233, 234, 235, 236}},
	68: {
		OfficeIDs:   []uint{60, 61, 62, 63, 64, 65, 66, 67, 68, 69, 70, 71, 221, 222, 223, 233, 234, 235, 236},
		RCAContains: "please route this complaint to finance team",
	},
	69: {
		OfficeIDs:   []uint{60, 61, 62, 63, 64, 65, 66, 67, 68, 69, 70, 71, 221, 222, 223, 233, 234, 235, 236},
		RCAContains: "please route this complaint to opertations team", // sic
	},
	73: {
		OfficeMin: 72, OfficeMax: 110,
		ExcludeCategory: "Workplace Health, Safety and Environment",
		SiteIn:          []string{"Corporate Office Raya"},
	},
	74: {
		OfficeMin: 72, OfficeMax: 110,
		ExcludeCategory: "Workplace Health, Safety and Environment",
		SiteIn:          []string{"Manga Plant", "(QAIE) Plant", "Kamahan", "Muridke Plant"},
	},
	75: {
		OfficeMin: 72, OfficeMax: 110,
		ExcludeCategory: "Workplace Health, Safety and Environment",
		SiteNotIn:       []string{"Corporate Office Raya", "Manga Plant", "(QAIE) Plant", "Kamahan", "Muridke Plant"},
	},
	76: {
		OfficeMin: 72, OfficeMax: 110,
		RequireCategory: "Workplace Health, Safety and Environment",
	},
	139: {OfficeIDs: []uint{124, 125, 127, 131, 128, 132, 133, 139}},
	134: {OfficeIDs: []uint{134, 135, 136, 123, 126, 129, 130}},
	137: {OfficeIDs: []uint{137, 138, 140}},
	146: {
		OfficeMin: 146, OfficeMax: 180, ExtraOffices: []uint{144},
		Gender:             "female",
		CommentExcludes:    "dormitory complaint",
		HarassmentCarveOut: true,
	},
	147: {
		OfficeMin: 146, OfficeMax: 180, ExtraOffices: []uint{144},
		Gender:          "male",
		RefMin:          15100, RefMax: 153178,
		ExcludeCategory: "Harassment",
		CommentExcludes: "dormitory complaint",
	},
	148: {
		OfficeMin: 146, OfficeMax: 180, ExtraOffices: []uint{144},
		Gender:          "male",
		RefMin:          153178, RefMax: 158976,
		ExcludeCategory: "Harassment",
		CommentExcludes: "dormitory complaint",
	},
	149: {
		OfficeMin: 146, OfficeMax: 180, ExtraOffices: []uint{144},
		CommentContains: "dormitory complaint",
	},
	181: {OfficeMin: 181, OfficeMax: 187},
	199: {OfficeIDs: []uint{199, 200}},
	212: {OfficeMin: 212, OfficeMax: 220, Gender: "male"},
	213: {OfficeMin: 212, OfficeMax: 220, Gender: "female"},
	245: {OfficeIDs: []uint{243, 244, 245, 246, 247}},
	280: {OfficeMin: 280, OfficeMax: 314},
}

// Resolve returns the rule for a unit. Units without an entry fall back to
// direct office-id equality.
func Resolve(unitID uint) Rule {
	if rule, ok := rules[unitID]; ok {
		return rule
	}
	return Rule{OfficeIDs: []uint{unitID}}
}

// Matches evaluates the rule against a complaint and its filing employee.
func (r Rule) Matches(c *model.Complaint, e *model.Employee) bool {
	if !r.officeMatch(e.OfficeID) {
		return false
	}
	if r.CommentExcludes != "" && containsFold(c.AdditionalComments, r.CommentExcludes) {
		return false
	}
	if r.CommentContains != "" && !containsFold(c.AdditionalComments, r.CommentContains) {
		return false
	}
	if r.RequireCategory != "" && c.Categories != r.RequireCategory {
		return false
	}
	if r.ExcludeCategory != "" && c.Categories == r.ExcludeCategory {
		return false
	}
	if r.RCAContains != "" && !containsFold(c.RCA, r.RCAContains) && !containsFold(c.RCA1, r.RCAContains) {
		return false
	}
	if r.RefMin != 0 && (e.ID < r.RefMin || e.ID > r.RefMax) {
		return false
	}
	if len(r.SiteIn) > 0 && !stringIn(e.Site, r.SiteIn) {
		return false
	}
	if len(r.SiteNotIn) > 0 && stringIn(e.Site, r.SiteNotIn) {
		return false
	}
	if r.Gender != "" && !strings.EqualFold(e.Gender, r.Gender) {
		if r.HarassmentCarveOut && c.Categories == "Harassment" {
			return true
		}
		return false
	}
	return true
}

func (r Rule) officeMatch(officeID uint) bool {
	for _, id := range r.OfficeIDs {
		if id == officeID {
			return true
		}
	}
	for _, id := range r.ExtraOffices {
		if id == officeID {
			return true
		}
	}
	if r.OfficeMax != 0 && officeID >= r.OfficeMin && officeID <= r.OfficeMax {
		return true
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func stringIn(value string, set []string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
