package project

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryPresentation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category Category
		emoji    string
		label    string
	}{
		{CategoryAgriculture, "🌾", "농업"},
		{CategoryForestry, "🌲", "임업"},
		{CategoryLivestock, "🐄", "축산업"},
		{CategoryFishery, "🐟", "수산업"},
		{Category("horticulture"), "📋", "기타"},
		{Category(""), "📋", "기타"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.emoji, tt.category.Emoji(), "emoji for %q", tt.category)
		assert.Equal(t, tt.label, tt.category.Label(), "label for %q", tt.category)
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CategoryFishery, ParseCategory(" Fishery "))
	assert.Equal(t, CategoryLivestock, ParseCategory("축산업"))
	assert.Equal(t, Category("orchard"), ParseCategory("orchard"))
	assert.False(t, ParseCategory("orchard").Known())
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Project{ID: "agr001", Name: "중소농기계 지원"}.Valid())
	assert.False(t, Project{ID: "", Name: "x"}.Valid())
	assert.False(t, Project{ID: "x", Name: "  "}.Valid())
}

func TestSplitPeriod(t *testing.T) {
	t.Parallel()

	p, ok := SplitPeriod("2025.03.01 ~ 2025.03.31")
	require.True(t, ok)
	assert.Equal(t, "2025.03.01", p.Start)
	assert.Equal(t, "2025.03.31", p.End)
	assert.Equal(t, "2025.03.01~2025.03.31", p.String())

	_, ok = SplitPeriod("2025.03.01")
	assert.False(t, ok, "missing separator")
	_, ok = SplitPeriod("2025.03.01~03.31~04.01")
	assert.False(t, ok, "too many tokens")
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2025.03.01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2025.3.9")
	require.NoError(t, err)
	assert.Equal(t, "2025.03.09", FormatDate(d))

	for _, bad := range []string{"", "03.31", "2025-03-01", "2025.02.30", "2025.03.01x"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestDaysBetween(t *testing.T) {
	t.Parallel()

	seoul := time.FixedZone("KST", 9*60*60)
	today := time.Date(2025, 3, 29, 23, 30, 0, 0, seoul)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2, DaysBetween(today, end))
	assert.Equal(t, -2, DaysBetween(end, today))
	assert.Equal(t, time.Date(2025, 3, 29, 0, 0, 0, 0, time.UTC), Day(today))
}

func TestFormattedNotificationText(t *testing.T) {
	t.Parallel()

	p := Project{
		ID:                "agr001",
		Category:          CategoryAgriculture,
		Name:              "중소농기계 지원",
		ApplicationPeriod: "2025.03.01~03.31",
		Support1:          "농기계구입",
		Support2:          "최대200만원",
		Target:            "농업인",
		Location:          "농업정책과",
	}

	want := "🌾 중소농기계 지원\n" +
		"📅 신청기간: 2025.03.01~03.31\n" +
		"💰 지원내용: 농기계구입 / 최대200만원\n" +
		"👥 지원대상: 농업인\n" +
		"🏢 담당부서: 농업정책과"
	assert.Equal(t, want, p.FormattedNotificationText())

	p.Support1, p.Support2, p.Target = "", "", ""
	assert.Equal(t, "🌾 중소농기계 지원\n📅 신청기간: 2025.03.01~03.31\n🏢 담당부서: 농업정책과", p.FormattedNotificationText())
}

func TestDetailText(t *testing.T) {
	t.Parallel()

	p := Project{ID: "x", Name: "n", Category: "other", Phone: "063-560-2456", Requirements: "농업인증명서"}
	text := p.DetailText()
	assert.Contains(t, text, "📋 n")
	assert.Contains(t, text, "☎️ 문의: 063-560-2456")
	assert.Contains(t, text, "📎 구비서류: 농업인증명서")
}

func TestSamples(t *testing.T) {
	t.Parallel()

	samples := Samples()
	require.Len(t, samples, 9)

	seen := map[string]bool{}
	perCategory := map[Category]int{}
	for _, p := range samples {
		assert.True(t, p.Valid(), p.ID)
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
		perCategory[p.Category]++

		period, ok := p.Period()
		require.True(t, ok, p.ID)
		_, err := period.StartDate()
		assert.NoError(t, err, p.ID)
	}
	for _, c := range Categories {
		assert.Positive(t, perCategory[c], "category %s", c)
	}

	first := samples[0]
	assert.Equal(t, "agr001", first.ID)
	assert.Equal(t, "2025.02.25", first.NotificationDate)
	assert.Equal(t, "농업인증명서, 사업계획서", first.Requirements)
	assert.True(t, first.IsActive)

	samples[0].Name = "mutated"
	assert.Equal(t, "중소농기계 지원", Samples()[0].Name, "Samples returns a fresh copy")
}

func TestDecodeCatalogDropsInvalid(t *testing.T) {
	t.Parallel()

	projects, err := DecodeCatalog([]byte("- id: a\n  name: A\n- id: b\n- name: C\n"))
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "a", projects[0].ID)

	_, err = DecodeCatalog([]byte("{not: [a list"))
	assert.Error(t, err)
}

func TestFilterByCategory(t *testing.T) {
	t.Parallel()

	all := Samples()
	assert.Len(t, FilterByCategory(all, ""), len(all))
	fish := FilterByCategory(all, CategoryFishery)
	require.Len(t, fish, 2)
	for _, p := range fish {
		assert.Equal(t, CategoryFishery, p.Category)
	}
}

func TestOpenOn(t *testing.T) {
	t.Parallel()

	p := Project{ID: "a", Name: "n", ApplicationPeriod: "2025.3.1 ~ 2025.03.31", IsActive: true}
	kst := time.FixedZone("KST", 9*3600)

	assert.False(t, p.OpenOn(time.Date(2025, 2, 28, 23, 0, 0, 0, kst)))
	assert.True(t, p.OpenOn(time.Date(2025, 3, 1, 0, 0, 0, 0, kst)), "start is inclusive")
	assert.True(t, p.OpenOn(time.Date(2025, 3, 31, 23, 59, 0, 0, kst)), "end is inclusive")
	assert.False(t, p.OpenOn(time.Date(2025, 4, 1, 0, 0, 0, 0, kst)))

	inactive := p
	inactive.IsActive = false
	assert.False(t, inactive.OpenOn(time.Date(2025, 3, 10, 0, 0, 0, 0, kst)))

	broken := p
	broken.ApplicationPeriod = "2025.03.01~상시"
	assert.False(t, broken.OpenOn(time.Date(2025, 3, 10, 0, 0, 0, 0, kst)))

	got := FilterOpen([]Project{p, inactive, broken}, time.Date(2025, 3, 10, 0, 0, 0, 0, kst))
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}
