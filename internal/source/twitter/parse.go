package twitter

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"social_syncer/internal/domain"
)

// dateLayout is how Nitter renders the tweet-date title attribute,
// e.g. "May 3, 2024 · 12:00 PM UTC".
const dateLayout = "Jan 2, 2006 · 3:04 PM MST"

const (
	twitterBase = "https://twitter.com"
	pbsBase     = "https://pbs.twimg.com/"
)

// tweet is one parsed timeline entry before filtering.
type tweet struct {
	ID        string
	Link      string
	Text      string
	Likes     int64
	Date      time.Time
	Pictures  []string
	Videos    []string
	Retweet   bool
	Quoted    bool
	Pinned    bool
	HasDate   bool
	LikesText string
}

// ExtractTweetID returns the status ID from a tweet link: the last path
// segment without any fragment or query.
func ExtractTweetID(link string) string {
	parts := strings.Split(link, "/")
	last := parts[len(parts)-1]
	last = strings.SplitN(last, "#", 2)[0]
	last = strings.SplitN(last, "?", 2)[0]
	return last
}

func parseTimeline(doc *goquery.Document, instance string) []tweet {
	var tweets []tweet
	doc.Find(".timeline .timeline-item").Each(func(_ int, s *goquery.Selection) {
		if s.HasClass("show-more") || s.Find(".unavailable").Length() > 0 {
			return
		}
		href, ok := s.Find("a.tweet-link").First().Attr("href")
		if !ok || href == "" {
			return
		}

		link := twitterBase + strings.SplitN(href, "#", 2)[0]
		t := tweet{
			ID:      ExtractTweetID(link),
			Link:    link,
			Text:    strings.TrimSpace(s.Find(".tweet-content").First().Text()),
			Retweet: s.Find(".retweet-header").Length() > 0,
			Quoted:  s.Find(".quote").Length() > 0,
			Pinned:  s.Find(".pinned").Length() > 0,
		}

		if title, ok := s.Find(".tweet-date a").First().Attr("title"); ok {
			if d, err := time.Parse(dateLayout, title); err == nil {
				t.Date = d
				t.HasDate = true
			}
		}

		s.Find(".tweet-stats .tweet-stat").Each(func(_ int, stat *goquery.Selection) {
			if stat.Find(".icon-heart").Length() > 0 {
				t.LikesText = strings.TrimSpace(stat.Text())
			}
		})
		if n, err := domain.ParseCount(t.LikesText); err == nil {
			t.Likes = n
		}

		// Attachments of a quoted tweet belong to the quote, not to this one.
		body := s.Find(".tweet-body").First()
		attachments := body.ChildrenFiltered(".attachments")
		if attachments.Length() == 0 {
			attachments = s.Find(".attachments").Not(".quote .attachments")
		}
		attachments.Find("a.still-image").Each(func(_ int, a *goquery.Selection) {
			if h, ok := a.Attr("href"); ok {
				t.Pictures = append(t.Pictures, picURL(h, instance))
			}
		})
		attachments.Find("video").Each(func(_ int, v *goquery.Selection) {
			if src := videoURL(v, instance); src != "" {
				t.Videos = append(t.Videos, src)
			}
		})

		tweets = append(tweets, t)
	})
	return tweets
}

// nextCursor returns the "load more" query of the page, if any.
func nextCursor(doc *goquery.Document) string {
	var cursor string
	doc.Find(".show-more a").Each(func(_ int, a *goquery.Selection) {
		if h, ok := a.Attr("href"); ok && strings.Contains(h, "cursor=") {
			cursor = h
		}
	})
	return cursor
}

// picURL maps a Nitter image proxy path back to the twimg origin.
func picURL(href, instance string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	p := strings.TrimPrefix(href, "/pic/")
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	p = strings.SplitN(p, "?", 2)[0]
	p = strings.TrimPrefix(p, "orig/")

	switch {
	case strings.HasPrefix(p, "media/"), strings.HasPrefix(p, "profile_images/"),
		strings.HasPrefix(p, "profile_banners/"), strings.HasPrefix(p, "ext_tw_video_thumb/"):
		return pbsBase + p
	case strings.HasPrefix(p, "pbs.twimg.com/"):
		return "https://" + p
	}
	return strings.TrimRight(instance, "/") + href
}

// videoURL extracts the origin video URL Nitter embeds, escaped, at the end
// of its proxy path.
func videoURL(v *goquery.Selection, instance string) string {
	var raw string
	if src, ok := v.Find("source").First().Attr("src"); ok {
		raw = src
	} else if du, ok := v.Attr("data-url"); ok {
		raw = du
	}
	if raw == "" {
		return ""
	}
	if i := strings.Index(raw, "https%3A"); i >= 0 {
		if u, err := url.PathUnescape(raw[i:]); err == nil {
			return u
		}
	}
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	return strings.TrimRight(instance, "/") + raw
}

type profileCard struct {
	Fullname  string
	Username  string
	AvatarURL string
	Followers int64
	Found     bool
}

func parseProfile(doc *goquery.Document, instance string) profileCard {
	card := doc.Find(".profile-card").First()
	if card.Length() == 0 {
		return profileCard{}
	}

	p := profileCard{
		Found:    true,
		Fullname: strings.TrimSpace(card.Find(".profile-card-fullname").First().Text()),
		Username: strings.TrimPrefix(strings.TrimSpace(card.Find(".profile-card-username").First().Text()), "@"),
	}
	if href, ok := card.Find("a.profile-card-avatar").First().Attr("href"); ok {
		p.AvatarURL = picURL(href, instance)
	}
	followers := strings.TrimSpace(doc.Find(".profile-statlist .followers .profile-stat-num").First().Text())
	if n, err := domain.ParseCount(followers); err == nil {
		p.Followers = n
	}
	return p
}
