package services

import (
	"fmt"
	"net/url"
	"strings"
)

// SearchData is the search result envelope shared by the static preparer
// and the augmented search provider.
type SearchData struct {
	Title        string         `json:"title"`
	Summary      string         `json:"summary"`
	Results      []SearchResult `json:"results"`
	FeaturedInfo *FeaturedInfo  `json:"featuredInfo,omitempty"`
	Citations    []string       `json:"citations,omitempty"`
}

type SearchResult struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	DisplayURL string `json:"displayUrl"`
	Snippet    string `json:"snippet"`
}

type FeaturedInfo struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
	Source  string   `json:"source"`
}

const defaultSearchSubject = "general health"

// PrepareSearchData returns curated content for diabetes queries and
// templated MedlinePlus/Mayo Clinic results for everything else.
func PrepareSearchData(query string) SearchData {
	query = strings.TrimSpace(query)
	if strings.Contains(strings.ToLower(query), "diabetes") {
		return diabetesSearchData()
	}
	if query == "" {
		query = defaultSearchSubject
	}
	return SearchData{
		Title:   query,
		Summary: fmt.Sprintf("Information about %s", query),
		Results: []SearchResult{
			{
				Title:      fmt.Sprintf("Medical Information about %s | MedlinePlus", query),
				URL:        medlinePlusURL(query),
				DisplayURL: "medlineplus.gov › search › " + plusJoined(query),
				Snippet:    fmt.Sprintf("Comprehensive medical information about %s including symptoms, treatments, and prevention measures.", query),
			},
			{
				Title:      fmt.Sprintf("%s - Health Information | Mayo Clinic", query),
				URL:        "https://www.mayoclinic.org/search/search-results?q=" + url.QueryEscape(query),
				DisplayURL: "www.mayoclinic.org › search › " + plusJoined(query),
				Snippet:    fmt.Sprintf("Learn about the causes, symptoms, diagnosis & treatment of %s from the Mayo Clinic.", query),
			},
		},
	}
}

// DiabetesCitations are the fixed sources behind the curated diabetes block.
var DiabetesCitations = []string{
	"https://www.mayoclinic.org/diseases-conditions/diabetes/symptoms-causes/syc-20371444",
	"https://www.niddk.nih.gov/health-information/diabetes/overview/symptoms-causes",
	"https://www.cdc.gov/diabetes/basics/symptoms.html",
}

func diabetesSearchData() SearchData {
	return SearchData{
		Title:   "Diabetes Information",
		Summary: "Information about diabetes symptoms and management",
		FeaturedInfo: &FeaturedInfo{
			Title: "Common symptoms of diabetes include:",
			Content: []string{
				"Increased thirst and urination",
				"Extreme fatigue",
				"Blurry vision",
				"Cuts/bruises that are slow to heal",
				"Weight loss, even though you are eating more (type 1)",
				"Tingling, pain, or numbness in the hands/feet (type 2)",
			},
			Source: "American Diabetes Association",
		},
		Results: []SearchResult{
			{
				Title:      "Diabetes Symptoms: When to see a doctor | Mayo Clinic",
				URL:        DiabetesCitations[0],
				DisplayURL: "www.mayoclinic.org › diseases-conditions › diabetes › symptoms-causes",
				Snippet:    "Diabetes symptoms vary depending on how much your blood sugar is elevated. Some people, especially those with prediabetes or type 2 diabetes, may not ...",
			},
			{
				Title:      "Symptoms & Causes of Diabetes | NIDDK",
				URL:        DiabetesCitations[1],
				DisplayURL: "www.niddk.nih.gov › health-information › diabetes",
				Snippet:    "What are the symptoms of diabetes? Symptoms of diabetes include increased thirst and urination, fatigue, and blurred vision. Some people with ...",
			},
			{
				Title:      "Diabetes Symptoms | CDC",
				URL:        DiabetesCitations[2],
				DisplayURL: "www.cdc.gov › diabetes › basics › symptoms",
				Snippet:    "Learn about diabetes symptoms such as frequent urination, increased thirst, and unexplained weight loss. Early detection and treatment can prevent ...",
			},
		},
		Citations: append([]string(nil), DiabetesCitations...),
	}
}

func medlinePlusURL(query string) string {
	return "https://medlineplus.gov/search?query=" + url.QueryEscape(query)
}

func plusJoined(query string) string {
	return strings.Join(strings.Fields(query), "+")
}
