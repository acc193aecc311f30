package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foshrdd/grievance/pkg/model"
)

func TestResolveFallbackIsOfficeEquality(t *testing.T) {
	rule := Resolve(9999)
	c := &model.Complaint{Categories: "Wages"}

	assert.True(t, rule.Matches(c, &model.Employee{OfficeID: 9999}))
	assert.False(t, rule.Matches(c, &model.Employee{OfficeID: 9998}))
}

func TestHarassmentCarveOutUnit146(t *testing.T) {
	rule := Resolve(146)

	// The spec scenario: Harassment complaint from office 150, female filer.
	harassment := &model.Complaint{Categories: "Harassment"}
	female := &model.Employee{OfficeID: 150, Gender: "female"}
	assert.True(t, rule.Matches(harassment, female))

	// Harassment from a male filer in range is still admitted.
	male := &model.Employee{OfficeID: 150, Gender: "male"}
	assert.True(t, rule.Matches(harassment, male))

	// A non-harassment complaint from a male filer is not.
	wages := &model.Complaint{Categories: "Wages"}
	assert.False(t, rule.Matches(wages, male))

	// The dormitory exclusion beats the carve-out.
	dormitory := &model.Complaint{Categories: "Harassment", AdditionalComments: "This is a Dormitory Complaint about heating"}
	assert.False(t, rule.Matches(dormitory, female))

	// Office 144 is admitted alongside the 146-180 range.
	assert.True(t, rule.Matches(harassment, &model.Employee{OfficeID: 144, Gender: "female"}))
	assert.False(t, rule.Matches(harassment, &model.Employee{OfficeID: 145, Gender: "female"}))
}

func TestDormitoryUnit149(t *testing.T) {
	rule := Resolve(149)
	emp := &model.Employee{OfficeID: 160, Gender: "male"}

	assert.True(t, rule.Matches(&model.Complaint{AdditionalComments: "dormitory complaint: broken fan"}, emp))
	assert.False(t, rule.Matches(&model.Complaint{AdditionalComments: "canteen food"}, emp))
}

func TestReferenceRangeSplitsUnits147And148(t *testing.T) {
	c := &model.Complaint{Categories: "Wages"}
	low := &model.Employee{ID: 20000, OfficeID: 150, Gender: "male"}
	high := &model.Employee{ID: 155000, OfficeID: 150, Gender: "male"}

	assert.True(t, Resolve(147).Matches(c, low))
	assert.False(t, Resolve(147).Matches(c, high))
	assert.True(t, Resolve(148).Matches(c, high))
	assert.False(t, Resolve(148).Matches(c, low))
}

func TestCategoryFilterUnits73And76(t *testing.T) {
	whse := &model.Complaint{Categories: "Workplace Health, Safety and Environment"}
	other := &model.Complaint{Categories: "Wages"}
	corporate := &model.Employee{OfficeID: 80, Site: "Corporate Office Raya"}

	assert.False(t, Resolve(73).Matches(whse, corporate))
	assert.True(t, Resolve(73).Matches(other, corporate))
	assert.True(t, Resolve(76).Matches(whse, corporate))
	assert.False(t, Resolve(76).Matches(other, corporate))

	// Unit 74 only sees the named plants; unit 75 sees everything else.
	plant := &model.Employee{OfficeID: 80, Site: "Manga Plant"}
	elsewhere := &model.Employee{OfficeID: 80, Site: "Warehouse East"}
	assert.True(t, Resolve(74).Matches(other, plant))
	assert.False(t, Resolve(74).Matches(other, elsewhere))
	assert.True(t, Resolve(75).Matches(other, elsewhere))
	assert.False(t, Resolve(75).Matches(other, plant))
}

func TestRCARoutingTextUnit68(t *testing.T) {
	rule := Resolve(68)
	emp := &model.Employee{OfficeID: 65}

	routed := &model.Complaint{RCA: "Findings attached. Please route this complaint to Finance Team."}
	assert.True(t, rule.Matches(routed, emp))

	routedLater := &model.Complaint{RCA1: "please route this complaint to finance team"}
	assert.True(t, rule.Matches(routedLater, emp))

	assert.False(t, rule.Matches(&model.Complaint{RCA: "resolved locally"}, emp))
}

func TestGenderSplitUnits212And213(t *testing.T) {
	c := &model.Complaint{Categories: "Wages"}
	m := &model.Employee{OfficeID: 215, Gender: "Male"}
	f := &model.Employee{OfficeID: 215, Gender: "Female"}

	assert.True(t, Resolve(212).Matches(c, m))
	assert.False(t, Resolve(212).Matches(c, f))
	assert.True(t, Resolve(213).Matches(c, f))
	assert.False(t, Resolve(213).Matches(c, m))
}
