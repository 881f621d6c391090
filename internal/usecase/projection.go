package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

// Per-platform content limits.
const (
	youtubeTitleLimit       = 100
	youtubeDescriptionLimit = 5000
	youtubeTagLimit         = 10
	instagramSummaryLimit   = 200
	instagramHashtagLimit   = 30
	twitterCharLimit        = 280
	twitterHashtagLimit     = 3
	linkedinInsightLimit    = 3
)

// Project builds the platform-bounded view of a job. It is pure: no IO,
// no mutation of the job, same output for the same input.
func Project(job *domain.ContentJob, platform string) ports.ProjectedContent {
	switch platform {
	case "youtube":
		return projectYouTube(job)
	case "instagram":
		return projectInstagram(job)
	case "twitter":
		return projectTwitter(job)
	case "linkedin":
		return projectLinkedIn(job)
	}
	return ports.ProjectedContent{
		Platform:   platform,
		Title:      job.Title,
		Text:       job.Analysis.Summary,
		MediaURL:   job.MediaURL,
		ArticleURL: job.SourceURL,
	}
}

func projectYouTube(job *domain.ContentJob) ports.ProjectedContent {
	title := job.Title
	if len(job.Analysis.Titles) > 0 && job.Analysis.Titles[0] != "" {
		title = job.Analysis.Titles[0]
	}

	var b strings.Builder
	b.WriteString(job.Analysis.Summary)
	for _, point := range job.Analysis.KeyPoints {
		b.WriteString("\n- ")
		b.WriteString(point)
	}
	if job.SourceURL != "" {
		b.WriteString("\n\nSource: ")
		b.WriteString(job.SourceURL)
	}

	tags := make([]string, 0, youtubeTagLimit)
	for _, tag := range job.Analysis.Hashtags {
		if len(tags) == youtubeTagLimit {
			break
		}
		tags = append(tags, strings.TrimPrefix(tag, "#"))
	}

	return ports.ProjectedContent{
		Platform:    "youtube",
		Title:       truncate(title, youtubeTitleLimit),
		Description: truncate(b.String(), youtubeDescriptionLimit),
		Tags:        tags,
		MediaURL:    job.MediaURL,
		ArticleURL:  job.SourceURL,
		MediaFormat: "video",
	}
}

func projectInstagram(job *domain.ContentJob) ports.ProjectedContent {
	hashtags := job.Analysis.Hashtags
	if len(hashtags) > instagramHashtagLimit {
		hashtags = hashtags[:instagramHashtagLimit]
	}

	caption := truncate(job.Analysis.Summary, instagramSummaryLimit)
	if len(hashtags) > 0 {
		caption = fmt.Sprintf("%s\n\n%s", caption, strings.Join(hashtags, " "))
	}

	return ports.ProjectedContent{
		Platform:    "instagram",
		Title:       job.Title,
		Caption:     caption,
		Hashtags:    hashtags,
		MediaURL:    job.MediaURL,
		ArticleURL:  job.SourceURL,
		MediaFormat: "reel",
	}
}

// projectTwitter fits title and summary into the character ceiling, then
// appends up to three hashtags only when the whole batch still fits.
func projectTwitter(job *domain.ContentJob) ports.ProjectedContent {
	text := job.Title
	if job.Analysis.Summary != "" {
		text = fmt.Sprintf("%s\n\n%s", job.Title, job.Analysis.Summary)
	}
	text = truncate(text, twitterCharLimit)

	hashtags := job.Analysis.Hashtags
	if len(hashtags) > twitterHashtagLimit {
		hashtags = hashtags[:twitterHashtagLimit]
	}
	if len(hashtags) > 0 {
		batch := strings.Join(hashtags, " ")
		if utf8.RuneCountInString(text)+1+utf8.RuneCountInString(batch) <= twitterCharLimit {
			text = text + "\n" + batch
		} else {
			hashtags = nil
		}
	}

	return ports.ProjectedContent{
		Platform:   "twitter",
		Title:      job.Title,
		Text:       text,
		Hashtags:   hashtags,
		MediaURL:   job.MediaURL,
		ArticleURL: job.SourceURL,
	}
}

func projectLinkedIn(job *domain.ContentJob) ports.ProjectedContent {
	insights := job.Analysis.KeyPoints
	if len(insights) > linkedinInsightLimit {
		insights = insights[:linkedinInsightLimit]
	}

	var b strings.Builder
	b.WriteString(job.Analysis.Summary)
	if len(insights) > 0 {
		b.WriteString("\n\nKey insights:")
		for _, insight := range insights {
			b.WriteString("\n- ")
			b.WriteString(insight)
		}
	}

	return ports.ProjectedContent{
		Platform:   "linkedin",
		Title:      job.Title,
		Text:       b.String(),
		MediaURL:   job.MediaURL,
		ArticleURL: job.SourceURL,
	}
}

// truncate caps s at limit characters. Platform ceilings count
// characters, not bytes, so the cut is rune-aligned.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
