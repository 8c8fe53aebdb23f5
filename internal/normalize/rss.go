package normalize

import (
	"encoding/xml"
	"strings"
)

// rssItem is the subset of an RSS <item> element the agency feeds carry.
// Neither feed publishes award amounts or deadlines, so those fields stay
// absent on opportunities built from feed items.
type rssItem struct {
	XMLName     xml.Name `xml:"item"`
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        string   `xml:"guid"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
}

func decodeRSSItem(payload []byte) (*rssItem, error) {
	var item rssItem
	if err := xml.Unmarshal(payload, &item); err != nil {
		return nil, malformedf("rss item: %v", err)
	}
	return &item, nil
}

// id picks the stable identifier of a feed item: the GUID when present,
// otherwise the link
func (it *rssItem) id() string {
	if s := strings.TrimSpace(it.GUID); s != "" {
		return s
	}
	return strings.TrimSpace(it.Link)
}
