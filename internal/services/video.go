package services

import (
	"fmt"
	"strings"
)

const (
	sampleVideoID        = "dQw4w9WgXcQ"
	sampleVideoThumbnail = "https://i.ytimg.com/vi/" + sampleVideoID + "/hqdefault.jpg"
	defaultVideoSubject  = "General Health"
)

// VideoData is the inline video card attached to a chat reply.
type VideoData struct {
	Title       string `json:"title"`
	VideoID     string `json:"videoId"`
	Thumbnail   string `json:"thumbnail"`
	Duration    string `json:"duration"`
	Channel     string `json:"channel"`
	Views       string `json:"views"`
	Likes       string `json:"likes"`
	Description string `json:"description"`
}

func PrepareVideoData(query string) VideoData {
	query = strings.TrimSpace(query)
	if query == "" {
		query = defaultVideoSubject
	}
	return VideoData{
		Title:     fmt.Sprintf("Managing %s: Healthy Living Tips", query),
		VideoID:   sampleVideoID,
		Thumbnail: sampleVideoThumbnail,
		Duration:  "6:42",
		Channel:   fmt.Sprintf("%s Health Association", query),
		Views:     "23K",
		Likes:     "450",
		Description: fmt.Sprintf("This video provides practical tips for managing %s through diet, exercise, and lifestyle changes. "+
			"Learn about prevention, treatment options, and how to live a healthy life.", query),
	}
}

// VideoSummary is one entry of the standalone video search endpoint.
type VideoSummary struct {
	Title     string `json:"title"`
	VideoID   string `json:"videoId"`
	Thumbnail string `json:"thumbnail"`
	Channel   string `json:"channel"`
	Duration  string `json:"duration"`
}

type VideoList struct {
	Videos []VideoSummary `json:"videos"`
}

// VideoSearch backs GET /api/videos.
func VideoSearch(query string) VideoList {
	return VideoList{Videos: []VideoSummary{{
		Title:     "Understanding " + strings.TrimSpace(query),
		VideoID:   sampleVideoID,
		Thumbnail: sampleVideoThumbnail,
		Channel:   "Medical Channel",
		Duration:  "5:42",
	}}}
}
