package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/medassist/internal/intent"
	"github.com/wolfman30/medassist/internal/observability/metrics"
)

func TestPrepareAppointmentData(t *testing.T) {
	data := PrepareAppointmentData(nil)
	assert.Equal(t, []string{"General Check-up", "Specialist Consultation", "Follow-up", "Vaccination"}, data.AppointmentTypes)
	assert.Len(t, data.Doctors, 4)
	assert.Nil(t, data.ExtractedDetails)

	details := &intent.AppointmentDetails{Date: "2024-03-15", Time: "3:00 PM"}
	data = PrepareAppointmentData(details)
	require.NotNil(t, data.ExtractedDetails)
	assert.Equal(t, "2024-03-15", data.ExtractedDetails.Date)

	details.Date = "changed"
	assert.Equal(t, "2024-03-15", data.ExtractedDetails.Date, "payload must not alias the caller's details")

	assert.Nil(t, PrepareAppointmentData(&intent.AppointmentDetails{}).ExtractedDetails)
}

func TestPrepareSearchDataDiabetes(t *testing.T) {
	for _, q := range []string{"diabetes", "type 2 Diabetes symptoms"} {
		data := PrepareSearchData(q)
		require.NotNil(t, data.FeaturedInfo, q)
		assert.NotEmpty(t, data.FeaturedInfo.Content)
		assert.Equal(t, "American Diabetes Association", data.FeaturedInfo.Source)
		assert.Equal(t, DiabetesCitations, data.Citations)
		assert.Len(t, data.Results, 3)
	}
}

func TestPrepareSearchDataGeneric(t *testing.T) {
	data := PrepareSearchData("heart disease")
	assert.Equal(t, "heart disease", data.Title)
	assert.Equal(t, "Information about heart disease", data.Summary)
	require.Len(t, data.Results, 2)
	assert.Equal(t, "https://medlineplus.gov/search?query=heart+disease", data.Results[0].URL)
	assert.Equal(t, "medlineplus.gov › search › heart+disease", data.Results[0].DisplayURL)
	assert.Contains(t, data.Results[1].URL, "mayoclinic.org/search/search-results?q=heart+disease")
	assert.Nil(t, data.FeaturedInfo)
	assert.Empty(t, data.Citations)
}

func TestPrepareSearchDataEmptyQuery(t *testing.T) {
	data := PrepareSearchData("   ")
	assert.NotEmpty(t, data.Title)
	assert.Len(t, data.Results, 2)
}

func TestPrepareVideoData(t *testing.T) {
	v := PrepareVideoData("back pain")
	assert.Equal(t, "Managing back pain: Healthy Living Tips", v.Title)
	assert.Equal(t, "back pain Health Association", v.Channel)
	assert.Equal(t, "dQw4w9WgXcQ", v.VideoID)
	assert.Equal(t, "6:42", v.Duration)
	assert.Contains(t, v.Description, "managing back pain")

	assert.Equal(t, "Managing General Health: Healthy Living Tips", PrepareVideoData("").Title)
}

func TestVideoSearch(t *testing.T) {
	list := VideoSearch("asthma")
	require.Len(t, list.Videos, 1)
	assert.Equal(t, "Understanding asthma", list.Videos[0].Title)
	assert.Equal(t, "Medical Channel", list.Videos[0].Channel)
}

type stubProvider struct {
	data  SearchData
	err   error
	calls int
}

func (s *stubProvider) Search(_ context.Context, _ string) (SearchData, error) {
	s.calls++
	return s.data, s.err
}

func TestSearcherWithoutProviderServesStatic(t *testing.T) {
	s := NewSearcher(nil, nil, nil)
	assert.False(t, s.Available())
	assert.Equal(t, PrepareSearchData("asthma"), s.Search(context.Background(), "asthma"))
}

func TestSearcherUsesProvider(t *testing.T) {
	provider := &stubProvider{data: SearchData{Title: "asthma", Summary: "from provider"}}
	m := metrics.NewChatMetrics(prometheus.NewRegistry())
	s := NewSearcher(provider, nil, m)

	got := s.Search(context.Background(), "asthma")
	assert.Equal(t, "from provider", got.Summary)
	assert.Equal(t, 1, provider.calls)
}

func TestSearcherFallsBackAndTrips(t *testing.T) {
	provider := &stubProvider{err: &ProviderError{Provider: "perplexity", Status: 502, Err: errors.New("bad gateway")}}
	s := NewSearcher(provider, nil, nil)

	for i := 0; i < 5; i++ {
		got := s.Search(context.Background(), "diabetes")
		assert.Equal(t, "Diabetes Information", got.Title)
	}
	assert.Equal(t, 3, provider.calls, "breaker should open after three consecutive failures")
}

func TestProviderErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := &ProviderError{Provider: "perplexity", Status: 500, Err: base}
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "status 500")
}
