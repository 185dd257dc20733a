// Package tagging resolves the effective tag of a session: the session's own
// override when set, otherwise the app's default, otherwise none.
package tagging

import "focustrack/internal/model"

// Cache is a snapshot of the tag table for one render or export cycle.
// Callers rebuild it when tags change; it is cheap.
type Cache struct {
	byID map[int64]model.Tag
}

func NewCache(tags []model.Tag) *Cache {
	byID := make(map[int64]model.Tag, len(tags))
	for _, tag := range tags {
		byID[tag.ID] = tag
	}
	return &Cache{byID: byID}
}

func (c *Cache) ByID(id int64) (model.Tag, bool) {
	tag, ok := c.byID[id]
	return tag, ok
}

// Resolve returns the effective tag for the session, or nil when neither
// the session nor the app carries one.
func (c *Cache) Resolve(session model.Session, app model.AppInfo) *model.Tag {
	if session.TagID != nil {
		if tag, ok := c.byID[*session.TagID]; ok {
			return &tag
		}
	}
	if app.DefaultTagID != nil {
		if tag, ok := c.byID[*app.DefaultTagID]; ok {
			return &tag
		}
	}
	return nil
}
