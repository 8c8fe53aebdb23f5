package normalize

import (
	"strings"

	"github.com/mfadeev/grantmatch/internal/model"
)

// NSF normalizes one item from the NSF funding feed
func NSF(payload []byte) (*model.Opportunity, error) {
	item, err := decodeRSSItem(payload)
	if err != nil {
		return nil, err
	}
	return &model.Opportunity{
		ID:       item.id(),
		Title:    strings.TrimSpace(item.Title),
		Synopsis: StripHTML(item.Description),
	}, nil
}
