package timenorm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PabloGalante/chatplanner/internal/app/timenorm"
	"github.com/PabloGalante/chatplanner/internal/domain"
)

var refTime = time.Date(2024, 12, 21, 12, 0, 0, 0, timenorm.DefaultLocation())

func TestNormalize(t *testing.T) {
	n := timenorm.Default()

	tests := []struct {
		name string
		raw  string
		want domain.TimeDescriptor
	}{
		{"bracketed date and time", "[2024-12-22; 19:00:00]", domain.TimeDescriptor{DateTime: "2024-12-22T19:00:00+03:00"}},
		{"angle decoration", "[<2024-12-03>; <16:00>]", domain.TimeDescriptor{DateTime: "2024-12-03T16:00:00+03:00"}},
		{"hour only is padded", "[2024-12-22; 7]", domain.TimeDescriptor{DateTime: "2024-12-22T07:00:00+03:00"}},
		{"hour and minute padded", "2024-12-22 9:30", domain.TimeDescriptor{DateTime: "2024-12-22T09:30:00+03:00"}},
		{"canonical dateTime", "2024-12-22T19:00:00+03:00", domain.TimeDescriptor{DateTime: "2024-12-22T19:00:00+03:00"}},
		{"hour 24 clamps to 23", "2024-12-21T24:00:00", domain.TimeDescriptor{DateTime: "2024-12-21T23:00:00+03:00"}},
		{"date only", "[2024-12-22]", domain.TimeDescriptor{Date: "2024-12-22"}},
		{"bare date marker", "[2024-12-22; -]", domain.TimeDescriptor{Date: "2024-12-22"}},
		{"placeholder time", "[2024-12-22; XX:XX]", domain.TimeDescriptor{Date: "2024-12-22"}},
		{"partial placeholder", "[2024-12-22; 19:XX]", domain.TimeDescriptor{DateTime: "2024-12-22T19:00:00+03:00"}},
		{"dotted date", "[22.12.2024; 10:15]", domain.TimeDescriptor{DateTime: "2024-12-22T10:15:00+03:00"}},
		{"garbage time keeps date", "[2024-12-22; вечером]", domain.TimeDescriptor{Date: "2024-12-22"}},
		{"minute out of range keeps date", "[2024-12-22; 10:75]", domain.TimeDescriptor{Date: "2024-12-22"}},
		{"tomorrow russian", "[завтра; 19:00]", domain.TimeDescriptor{Date: "2024-12-22"}},
		{"tomorrow english", "tomorrow at 7pm", domain.TimeDescriptor{Date: "2024-12-22"}},
		{"day after tomorrow russian", "послезавтра", domain.TimeDescriptor{Date: "2024-12-23"}},
		{"day after tomorrow english", "[day after tomorrow; 10:00]", domain.TimeDescriptor{Date: "2024-12-23"}},
		{"today", "[сегодня; 18:00]", domain.TimeDescriptor{Date: "2024-12-21"}},
		{"explicit date wins over keyword", "[2024-12-25; 10:00] завтра", domain.TimeDescriptor{DateTime: "2024-12-25T10:00:00+03:00"}},
		{"empty", "", domain.TimeDescriptor{}},
		{"lone dash", "-", domain.TimeDescriptor{}},
		{"trailing T", "2024-12-21T", domain.TimeDescriptor{}},
		{"trailing separator", "[2024-12-21; ]", domain.TimeDescriptor{}},
		{"empty brackets", "[]", domain.TimeDescriptor{}},
		{"nonsense", "не знаю, когда это", domain.TimeDescriptor{}},
		{"invalid date", "[2024-13-45; 10:00]", domain.TimeDescriptor{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.raw, refTime))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := timenorm.Default()

	inputs := []string{
		"[2024-12-22; 19:00:00]",
		"2024-12-21T24:00:00",
		"[2024-12-22; 7]",
		"[2024-12-22]",
		"[завтра; 19:00]",
	}
	for _, raw := range inputs {
		first := n.Normalize(raw, refTime)
		second := n.Normalize(first.Value(), refTime)
		assert.Equal(t, first, second, "input %q", raw)
	}
}

func TestNormalizeRelativeDateUsesQueryTime(t *testing.T) {
	n := timenorm.Default()

	utcNow := time.Date(2024, 12, 21, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-12-22", n.Normalize("завтра", utcNow).Date)

	// 22:30 UTC is already the next day at +03:00
	late := time.Date(2024, 12, 21, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-12-23", n.Normalize("tomorrow", late).Date)
}

func TestNormalizeCustomOffset(t *testing.T) {
	n := timenorm.New(time.FixedZone("-05:00", -5*60*60))
	got := n.Normalize("[2024-12-22; 19:00]", refTime)
	assert.Equal(t, "2024-12-22T19:00:00-05:00", got.DateTime)
}
