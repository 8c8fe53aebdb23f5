package normalize

import (
	"regexp"
	"strings"

	"github.com/mfadeev/grantmatch/internal/model"
)

var foaNumberRe = regexp.MustCompile(`(?i)DE-FOA-\d+`)

// DOE normalizes one item from the DOE funding announcements feed. When an
// FOA number appears in the title or description it becomes the identifier;
// otherwise the feed GUID is used. FOA numbers survive re-publishes of the
// same announcement, feed GUIDs do not.
func DOE(payload []byte) (*model.Opportunity, error) {
	item, err := decodeRSSItem(payload)
	if err != nil {
		return nil, err
	}

	synopsis := StripHTML(item.Description)
	id := item.id()
	if m := foaNumberRe.FindString(item.Title + " " + synopsis); m != "" {
		id = strings.ToUpper(m)
	}

	return &model.Opportunity{
		ID:       id,
		Title:    strings.TrimSpace(item.Title),
		Synopsis: synopsis,
	}, nil
}
