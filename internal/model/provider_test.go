package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeRangeOverlaps(t *testing.T) {
	slot := TimeRange{Start: 540, End: 600} // 09:00-10:00

	assert.True(t, slot.Overlaps(TimeRange{Start: 570, End: 630}))
	assert.True(t, slot.Overlaps(TimeRange{Start: 500, End: 550}))
	assert.True(t, slot.Overlaps(TimeRange{Start: 550, End: 560}))
	assert.True(t, slot.Overlaps(TimeRange{Start: 500, End: 700}))

	// Half-open: touching boundaries do not overlap.
	assert.False(t, slot.Overlaps(TimeRange{Start: 600, End: 660}))
	assert.False(t, slot.Overlaps(TimeRange{Start: 480, End: 540}))
	assert.False(t, slot.Overlaps(TimeRange{Start: 700, End: 760}))
}

func TestTimeRangeContains(t *testing.T) {
	slot := TimeRange{Start: 540, End: 600}

	assert.True(t, slot.Contains(TimeRange{Start: 540, End: 600}))
	assert.True(t, slot.Contains(TimeRange{Start: 550, End: 580}))
	assert.False(t, slot.Contains(TimeRange{Start: 530, End: 600}))
	assert.False(t, slot.Contains(TimeRange{Start: 570, End: 630}))
}

func TestTimeRangeValid(t *testing.T) {
	assert.True(t, TimeRange{Start: 0, End: MinutesPerDay}.Valid())
	assert.False(t, TimeRange{Start: 600, End: 600}.Valid())
	assert.False(t, TimeRange{Start: 600, End: 540}.Valid())
	assert.False(t, TimeRange{Start: -10, End: 60}.Valid())
	assert.False(t, TimeRange{Start: 0, End: MinutesPerDay + 1}.Valid())
}

func TestAvailabilityTemplateValidate(t *testing.T) {
	valid := AvailabilityTemplate{
		"Monday":  {{Start: 540, End: 720}, {Start: 780, End: 1020}},
		"Tuesday": {{Start: 540, End: 720}},
	}
	assert.NoError(t, valid.Validate())

	unknownDay := AvailabilityTemplate{
		"Funday": {{Start: 540, End: 720}},
	}
	assert.Error(t, unknownDay.Validate())

	overlapping := AvailabilityTemplate{
		"Monday": {{Start: 540, End: 720}, {Start: 700, End: 800}},
	}
	assert.Error(t, overlapping.Validate())

	unordered := AvailabilityTemplate{
		"Monday": {{Start: 780, End: 1020}, {Start: 540, End: 720}},
	}
	assert.Error(t, unordered.Validate())
}

func TestPricingTableValidate(t *testing.T) {
	assert.NoError(t, PricingTable{"video": 120, "chat": 80}.Validate())
	assert.Error(t, PricingTable{"": 120}.Validate())
	assert.Error(t, PricingTable{"video": -1}.Validate())
}
