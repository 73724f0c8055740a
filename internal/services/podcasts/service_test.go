package podcasts

import (
	"testing"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/stretchr/testify/assert"
)

func TestItunesDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		want     float64
	}{
		{"plain seconds", "3723", 3723},
		{"hh:mm:ss", "1:02:03", 3723},
		{"mm:ss", "02:03", 123},
		{"garbage", "about an hour", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item gofeed.Item
			if tt.duration != "" {
				item.ITunesExt = &ext.ITunesItemExtension{Duration: tt.duration}
			}
			assert.Equal(t, tt.want, itunesDuration(&item))
		})
	}
}

func TestEnclosureAudioURL(t *testing.T) {
	item := &gofeed.Item{Enclosures: []*gofeed.Enclosure{
		{URL: "https://cdn/ep.pdf", Type: "application/pdf"},
		{URL: "https://cdn/ep.mp3", Type: "audio/mpeg"},
	}}
	assert.Equal(t, "https://cdn/ep.mp3", enclosureAudioURL(item))

	assert.Empty(t, enclosureAudioURL(&gofeed.Item{}))
}

func TestItemGUIDFallback(t *testing.T) {
	assert.Equal(t, "guid-1", itemGUID(&gofeed.Item{GUID: "guid-1"}, "https://cdn/ep.mp3"))
	assert.Equal(t, "https://cdn/ep.mp3", itemGUID(&gofeed.Item{}, "https://cdn/ep.mp3"))
}
